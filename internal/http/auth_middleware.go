package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"logi-match/internal/service"
)

const (
	authClaimsKey    = "auth_claims"
	streamTokenParam = "access_token"
	bearerAuthPrefix = "bearer "
)

// AuthMiddleware exige un access token del proveedor de identidad. El token va
// en Authorization; los GET de stream tambien lo aceptan por query porque
// EventSource no permite headers.
func AuthMiddleware(jwtSvc *service.JWTService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if jwtSvc == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := jwtSvc.ParseAccessToken(token)
		if err != nil {
			logger.Debug("access token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			msg := "Unauthorized"
			if errors.Is(err, service.ErrJWTExpired) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > len(bearerAuthPrefix) && strings.EqualFold(header[:len(bearerAuthPrefix)], bearerAuthPrefix) {
		token := strings.TrimSpace(header[len(bearerAuthPrefix):])
		return token, token != ""
	}
	if header == "" && c.Request.Method == http.MethodGet && strings.HasSuffix(c.FullPath(), "/stream") {
		token := strings.TrimSpace(c.Query(streamTokenParam))
		return token, token != ""
	}
	return "", false
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

func authUserID(c *gin.Context) string {
	claims, ok := GetAuthClaims(c)
	if !ok {
		return ""
	}
	return claims.UserID
}
