package handler

import (
	"net/http"
	"time"

	"nexos/internal/auth"
	"nexos/pkg/logger"
	"nexos/pkg/response"

	"github.com/gin-gonic/gin"
)

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		if query != "" {
			path = path + "?" + query
		}
		fields := logger.Fields{
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
			"method":    c.Request.Method,
			"path":      path,
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("http request", fields)
			return
		}
		logger.Info("http request", fields)
	}
}

// RecoveryMiddleware turns a panic into a 500 response.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", logger.Fields{
					"panic": err,
					"path":  c.Request.URL.Path,
				})
				response.ServerError(c, "internal server error")
			}
		}()
		c.Next()
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ProvisionAccount creates the caller's wallet on first authenticated access.
func ProvisionAccount(wallet WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.IdentityFrom(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}
		if _, err := wallet.EnsureAccount(c.Request.Context(), identity.AccountID, identity.Kind, identity.Role, identity.Name); err != nil {
			writeError(c, err)
			return
		}
		c.Next()
	}
}
