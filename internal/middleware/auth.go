package middleware

import (
	"net/http"
	"strings"

	"github.com/carebook/carebook/internal/domain"
	"github.com/carebook/carebook/pkg/auth"
	"github.com/gin-gonic/gin"
)

const claimsContextKey = "claims"

// AuthMiddleware validates the bearer token and stores the caller's claims
// in the request context. Downstream handlers build an explicit Actor from
// these claims; nothing reads ambient session state.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// RoleAuthMiddleware restricts a route to the given roles.
// It must run after AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			abortUnauthorized(c, "authentication required")
			return
		}

		for _, role := range allowedRoles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "you do not have permission to access this resource",
		})
	}
}

func GetClaims(c *gin.Context) (*domain.Claims, bool) {
	v, exists := c.Get(claimsContextKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
