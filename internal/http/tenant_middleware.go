// Package http carries the middleware chain shared by every API surface:
// tenant resolution, session authentication and POS key authentication.
package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"gorm.io/gorm"
)

// TenantMiddleware resolves the :tenant path segment to a tenant row and
// stores it in the request context. Every route is tenant-scoped; an unknown
// slug never reaches a handler.
func TenantMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := strings.TrimSpace(c.Param("tenant"))
		if slug == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
			return
		}

		var tenant models.Tenant
		errFind := db.WithContext(c.Request.Context()).
			Where("slug = ?", slug).
			First(&tenant).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}

		c.Set(ctxTenant, &tenant)
		c.Next()
	}
}
