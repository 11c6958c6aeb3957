package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for the permission middleware.
type PermissionConfig struct {
	Logger *zap.Logger
	// OnDenied overrides the default 403 response.
	OnDenied func(c *gin.Context)
}

// RequireDocumentManager only lets through roles allowed to create, void, or
// replace ledger documents. Read-only roles are rejected with 403.
func RequireDocumentManager() gin.HandlerFunc {
	return RequireDocumentManagerWithConfig(PermissionConfig{})
}

// RequireDocumentManagerWithConfig is RequireDocumentManager with custom
// logging and denial handling.
func RequireDocumentManagerWithConfig(cfg PermissionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			forbidden(c, cfg, "no authenticated identity")
			return
		}
		if !identity.Role.CanManageDocuments() {
			forbidden(c, cfg, "role cannot manage documents")
			return
		}
		c.Next()
	}
}

func forbidden(c *gin.Context, cfg PermissionConfig, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c)
		return
	}
	if cfg.Logger != nil {
		identity, _ := IdentityFrom(c)
		cfg.Logger.Warn("permission denied",
			zap.String("reason", reason),
			zap.String("subject", identity.Subject),
			zap.String("role", identity.Role.String()),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_FORBIDDEN",
			"message": "Access denied: insufficient permissions",
		},
	})
}
