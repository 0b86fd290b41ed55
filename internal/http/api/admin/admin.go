// Package admin registers the tenant-administration API surface.
package admin

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/audit"
	"github.com/loyaltyworks/loyaltyhub/internal/config"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/http/api/admin/handlers"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers admin-only routes under /v0/:tenant/admin.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, sink *audit.Sink, reportingLoc *time.Location) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0/:tenant/admin")
	group.Use(httpapi.TenantMiddleware(db))
	group.Use(httpapi.SessionAuthMiddleware(db, cfg.JWT, models.RoleAdmin))

	dashboardHandler := handlers.NewDashboardHandler(db, reportingLoc)
	group.GET("/dashboard", dashboardHandler.Summary)

	customersHandler := handlers.NewCustomersHandler(db, sink)
	group.GET("/customers", customersHandler.List)
	group.POST("/cards/:id/block", customersHandler.BlockCard)
	group.POST("/cards/:id/unblock", customersHandler.UnblockCard)

	staffHandler := handlers.NewStaffHandler(db)
	group.GET("/staff", staffHandler.List)
	group.POST("/staff", staffHandler.Create)
	group.PUT("/staff/:id", staffHandler.Update)

	locationsHandler := handlers.NewLocationsHandler(db)
	group.GET("/locations", locationsHandler.List)
	group.POST("/locations", locationsHandler.Create)
	group.PUT("/locations/:id", locationsHandler.Update)
	group.POST("/locations/:id/regenerate-key", locationsHandler.RegenerateKey)

	rulesHandler := handlers.NewRulesHandler(db)
	group.GET("/rules", rulesHandler.List)
	group.POST("/rules", rulesHandler.Create)
	group.DELETE("/rules/:id", rulesHandler.Delete)

	offersHandler := handlers.NewOffersHandler(db)
	group.GET("/offers", offersHandler.List)
	group.POST("/offers", offersHandler.Create)
	group.POST("/offers/:id/deactivate", offersHandler.Deactivate)
	group.POST("/coupons", offersHandler.CreateCoupon)
	group.POST("/coupons/:id/assign", offersHandler.AssignCoupon)

	settingsHandler := handlers.NewSettingsHandler(db, sink)
	group.GET("/settings", settingsHandler.Get)
	group.PUT("/settings", settingsHandler.Update)
	group.POST("/settings/regenerate-pos-key", settingsHandler.RegeneratePOSKey)
}
