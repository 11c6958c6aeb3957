package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/infrastructure/auth"
	"github.com/tesoreria/backend/internal/infrastructure/logger"
)

const (
	// IdentityKey is the gin context key holding the authenticated identity.
	IdentityKey  = "auth_identity"
	bearerPrefix = "Bearer "
)

// JWTMiddlewareConfig holds configuration for the authentication middleware.
type JWTMiddlewareConfig struct {
	JWTService       *auth.JWTService
	SkipPaths        []string
	SkipPathPrefixes []string
	// Blacklist is an optional token revocation list. Nil skips the check.
	Blacklist auth.TokenBlacklist
	// OnError overrides the default 401 response.
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

// DefaultJWTConfig returns the middleware configuration with the unprotected
// system endpoints excluded.
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/api/v1/health",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
	}
}

func (cfg JWTMiddlewareConfig) skip(path string) bool {
	for _, p := range cfg.SkipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// JWTAuthMiddleware authenticates requests with the default configuration.
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig authenticates the bearer token, consults the
// revocation list when one is configured, and stores the resulting identity
// on the context for the permission and telemetry layers.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.skip(c.Request.URL.Path) {
			c.Next()
			return
		}

		token, err := bearerToken(c)
		if err != nil {
			unauthorized(c, cfg, err, "malformed authorization header")
			return
		}

		identity, claims, err := cfg.JWTService.ValidateTokenWithClaims(token)
		if err != nil {
			unauthorized(c, cfg, err, "token validation failed")
			return
		}

		if revoked := checkRevocation(c, cfg, identity, claims); revoked {
			unauthorized(c, cfg, auth.ErrRevokedToken, "token revoked")
			return
		}

		c.Set(IdentityKey, identity)

		// Propagate the subject into the request-scoped logger.
		ctx := c.Request.Context()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), identity.Subject)
		c.Request = c.Request.WithContext(ctx)

		if cfg.Logger != nil {
			cfg.Logger.Debug("authenticated",
				zap.String("subject", identity.Subject),
				zap.String("role", identity.Role.String()),
			)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", auth.ErrInvalidToken
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	if token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}

// checkRevocation reports whether the token is revoked, either individually
// or by a logout-everywhere cutoff on the subject. An unreachable revocation
// store does not lock everyone out; it logs and lets the request through.
func checkRevocation(c *gin.Context, cfg JWTMiddlewareConfig, identity shared.Identity, claims *auth.Claims) bool {
	if cfg.Blacklist == nil {
		return false
	}
	ctx := c.Request.Context()
	revoked, err := cfg.Blacklist.IsBlacklisted(ctx, claims.ID)
	if err == nil && !revoked && claims.IssuedAt != nil {
		revoked, err = cfg.Blacklist.IsUserTokenInvalidated(ctx, identity.Subject, claims.IssuedAt.Time)
	}
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("token revocation check failed", zap.Error(err))
		}
		return false
	}
	return revoked
}

var authErrorResponses = map[error]struct{ code, message string }{
	auth.ErrExpiredToken:     {"ERR_TOKEN_EXPIRED", "Token has expired"},
	auth.ErrInvalidToken:     {"ERR_TOKEN_INVALID", "Invalid token"},
	auth.ErrTokenNotYetValid: {"ERR_TOKEN_INVALID", "Token is not yet valid"},
	auth.ErrInvalidClaims:    {"ERR_TOKEN_INVALID", "Invalid token claims"},
	auth.ErrRevokedToken:     {"ERR_TOKEN_REVOKED", "Token has been revoked"},
}

func unauthorized(c *gin.Context, cfg JWTMiddlewareConfig, err error, reason string) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}
	if cfg.Logger != nil {
		cfg.Logger.Warn("authentication failed",
			zap.Error(err),
			zap.String("reason", reason),
			zap.String("path", c.Request.URL.Path),
		)
	}

	response := struct{ code, message string }{"ERR_UNAUTHORIZED", "Authentication required"}
	if mapped, ok := authErrorResponses[err]; ok {
		response = mapped
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    response.code,
			"message": response.message,
		},
	})
}

// IdentityFrom retrieves the authenticated identity from gin.Context.
// The second return is false on unauthenticated requests.
func IdentityFrom(c *gin.Context) (shared.Identity, bool) {
	if v, exists := c.Get(IdentityKey); exists {
		if identity, ok := v.(shared.Identity); ok {
			return identity, true
		}
	}
	return shared.Identity{}, false
}
