package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sealvault/sealvault-backend/internal/auth"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// Context keys set by JWTAuth for downstream handlers.
const (
	CtxAddress   = "address"
	CtxEmail     = "email"
	CtxSuinsName = "suins_name"
)

// JWTAuth verifies the caller's token and injects the verified identity
// claims into the gin context. Handlers trust these values, never
// request-body identities.
func JWTAuth(jwtSecret, issuer string, log *logger.Logger) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(jwtSecret, issuer)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			c.Abort()
			return
		}

		token, err := auth.ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := jwtManager.VerifyAccessToken(token)
		if err != nil {
			log.Warn("invalid access token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(CtxAddress, claims.Address)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxSuinsName, claims.SuinsName)

		ctx := logger.WithUserID(c.Request.Context(), claims.Address)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CallerAddress returns the verified wallet address injected by JWTAuth.
func CallerAddress(c *gin.Context) string {
	return c.GetString(CtxAddress)
}

// CallerEmail returns the verified email claim, empty when absent.
func CallerEmail(c *gin.Context) string {
	return c.GetString(CtxEmail)
}

// CallerSuinsName returns the verified SuiNS name claim, empty when absent.
func CallerSuinsName(c *gin.Context) string {
	return c.GetString(CtxSuinsName)
}
