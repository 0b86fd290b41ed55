package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/config"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/security"
	"gorm.io/gorm"
)

// SessionAuthMiddleware validates bearer session tokens, binds the session
// to the resolved tenant, and enforces the allowed roles. Staff sessions
// additionally require an active staff profile.
func SessionAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseSessionToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// A session is only valid against the tenant it was issued for.
		if claims.TenantID != TenantIDFrom(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		errFind := db.WithContext(c.Request.Context()).
			Where("id = ? AND tenant_id = ?", claims.UserID, claims.TenantID).
			First(&user).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}

		if len(roles) > 0 && !roleAllowed(user.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		if user.Role == models.RoleCashier || user.Role == models.RoleAdmin {
			var profile models.StaffProfile
			errProfile := db.WithContext(c.Request.Context()).
				Where("user_id = ?", user.ID).
				First(&profile).Error
			if errProfile == nil && !profile.IsActive {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff account deactivated"})
				return
			}
		}

		c.Set(ctxUser, &user)
		c.Next()
	}
}

func roleAllowed(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
