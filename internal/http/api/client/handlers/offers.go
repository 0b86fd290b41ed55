package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"gorm.io/gorm"
)

// OffersHandler lists the promotions visible to the session user.
type OffersHandler struct {
	db *gorm.DB
}

// NewOffersHandler constructs an OffersHandler.
func NewOffersHandler(db *gorm.DB) *OffersHandler {
	return &OffersHandler{db: db}
}

// List returns active offers: tenant-wide ones plus those targeting the
// session user.
func (h *OffersHandler) List(c *gin.Context) {
	user := httpapi.UserFrom(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var offers []models.Offer
	errList := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ? AND is_active = ?", user.TenantID, true).
		Where("applies_to_all = ? OR id IN (?)", true,
			h.db.Model(&models.OfferTarget{}).
				Select("offer_id").
				Where("tenant_id = ? AND user_id = ?", user.TenantID, user.ID)).
		Order("id DESC").
		Find(&offers).Error
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	now := time.Now()
	items := make([]gin.H, 0, len(offers))
	for _, offer := range offers {
		if !offer.ActiveAt(now) {
			continue
		}
		items = append(items, gin.H{
			"id":           offer.ID,
			"title":        offer.Title,
			"description":  offer.Description,
			"type":         offer.Type,
			"multiplier":   offer.Multiplier,
			"bonus_points": offer.BonusPoints,
			"active_from":  offer.ActiveFrom,
			"active_to":    offer.ActiveTo,
		})
	}
	c.JSON(http.StatusOK, gin.H{"offers": items})
}
