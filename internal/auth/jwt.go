// Package auth verifies bearer tokens issued by the identity service and
// exposes the caller to gin handlers. Tokens are never issued here.
package auth

import (
	"errors"
	"strings"

	"nexos/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by access tokens. Subject is the account id.
type Claims struct {
	Kind string `json:"kind"`
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Identity is the verified caller.
type Identity struct {
	AccountID string
	Kind      string
	Role      string
	Name      string
}

func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

// ParseToken validates an HS256 token and returns the caller it names.
func ParseToken(tokenString string, secret []byte) (*Identity, error) {
	if tokenString == "" {
		return nil, errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("auth: missing subject")
	}

	kind := claims.Kind
	if !model.ValidAccountKind(kind) {
		return nil, errors.New("auth: invalid account kind")
	}
	role := claims.Role
	switch role {
	case "":
		role = kind
	case model.RoleUser, model.RoleCompany, model.RoleAdmin:
	default:
		return nil, errors.New("auth: invalid role")
	}

	return &Identity{
		AccountID: claims.Subject,
		Kind:      kind,
		Role:      role,
		Name:      claims.Name,
	}, nil
}
