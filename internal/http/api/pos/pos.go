// Package pos registers the point-of-sale integration surface.
package pos

import (
	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/http/api/pos/handlers"
	"github.com/loyaltyworks/loyaltyhub/internal/ledger"
	"gorm.io/gorm"
)

// RegisterPOSRoutes registers API-key authenticated POS routes under
// /v0/:tenant/pos.
func RegisterPOSRoutes(r *gin.Engine, db *gorm.DB, engine *ledger.Engine) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0/:tenant/pos")
	group.Use(httpapi.TenantMiddleware(db))
	group.Use(httpapi.POSAuthMiddleware(db))

	posHandler := handlers.NewPOSHandler(db, engine)
	group.POST("/earn", posHandler.Earn)
}
