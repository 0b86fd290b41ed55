// Package staff registers the cashier-facing API surface.
package staff

import (
	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/config"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/http/api/staff/handlers"
	"github.com/loyaltyworks/loyaltyhub/internal/ledger"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/qrtoken"
	"gorm.io/gorm"
)

// RegisterStaffRoutes registers cashier routes under /v0/:tenant/staff.
// Cashiers and admins may both operate the scan flow.
func RegisterStaffRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, engine *ledger.Engine, tokens *qrtoken.Service) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0/:tenant/staff")
	group.Use(httpapi.TenantMiddleware(db))
	group.Use(httpapi.SessionAuthMiddleware(db, cfg.JWT, models.RoleCashier, models.RoleAdmin))

	scanHandler := handlers.NewScanHandler(db, engine, tokens)
	group.POST("/qr/validate", scanHandler.Validate)
	group.POST("/earn", scanHandler.Earn)
	group.POST("/redeem", scanHandler.Redeem)
	group.POST("/refund", scanHandler.Refund)

	opsHandler := handlers.NewOperationsHandler(db)
	group.GET("/operations", opsHandler.List)
}
