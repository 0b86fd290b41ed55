// Package client registers the customer-facing API surface.
package client

import (
	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/config"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/http/api/client/handlers"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/notify"
	"github.com/loyaltyworks/loyaltyhub/internal/qrtoken"
	"github.com/loyaltyworks/loyaltyhub/internal/ratelimit"
	"gorm.io/gorm"
)

// RegisterClientRoutes registers public and authenticated client routes
// under /v0/:tenant/client.
func RegisterClientRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, limiter ratelimit.Limiter, tokens *qrtoken.Service, notifier notify.Notifier) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0/:tenant/client")
	group.Use(httpapi.TenantMiddleware(db))

	authHandler := handlers.NewAuthHandler(db, cfg.JWT, cfg.Limits, limiter, notifier)
	group.POST("/register", authHandler.Register)
	group.POST("/login", authHandler.Login)
	group.POST("/verify-email", authHandler.VerifyEmail)
	group.POST("/verify-email/resend", authHandler.ResendCode)

	authed := group.Group("")
	authed.Use(httpapi.SessionAuthMiddleware(db, cfg.JWT, models.RoleClient))

	authed.POST("/otp/request", authHandler.RequestOTP)
	authed.POST("/otp/verify", authHandler.VerifyOTP)

	profileHandler := handlers.NewProfileHandler(db)
	authed.GET("/me", profileHandler.Me)
	authed.PUT("/me/password", profileHandler.ChangePassword)

	cardHandler := handlers.NewCardHandler(db, tokens)
	authed.POST("/qr", cardHandler.IssueQR)
	authed.GET("/operations", cardHandler.Operations)

	offersHandler := handlers.NewOffersHandler(db)
	authed.GET("/offers", offersHandler.List)

	couponsHandler := handlers.NewCouponsHandler(db)
	authed.GET("/coupons", couponsHandler.List)
}
