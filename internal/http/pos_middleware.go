package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"gorm.io/gorm"
)

// posKeyHeader carries the shared secret for POS integrations.
const posKeyHeader = "X-POS-API-Key"

// POSAuthMiddleware authenticates point-of-sale requests by API key. A key
// either matches the tenant-wide key or a single location's key; in the
// latter case the location is bound to the request context.
func POSAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(posKeyHeader))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing pos api key"})
			return
		}

		tenant := TenantFrom(c)
		if tenant == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
			return
		}
		if tenant.POSAPIKey != "" && subtle.ConstantTimeCompare([]byte(tenant.POSAPIKey), []byte(key)) == 1 {
			c.Next()
			return
		}

		var location models.Location
		errFind := db.WithContext(c.Request.Context()).
			Where("tenant_id = ? AND pos_api_key = ?", tenant.ID, key).
			First(&location).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid pos api key"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}

		c.Set(ctxPOSLocation, location.ID)
		c.Next()
	}
}
