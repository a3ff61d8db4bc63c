package auth

import (
	"strings"

	"nexos/pkg/response"

	"github.com/gin-gonic/gin"
)

const identityKey = "auth.identity"

// Authenticate rejects requests without a valid bearer token.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}

		identity, err := ParseToken(strings.TrimSpace(token), secret)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the caller stored by Authenticate.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*Identity)
	return identity, ok
}

// RequireKind lets through callers of one of kinds, and admins.
func RequireKind(kinds ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}
		if identity.IsAdmin() {
			c.Next()
			return
		}
		for _, k := range kinds {
			if identity.Kind == k {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "this account cannot perform the operation")
	}
}
