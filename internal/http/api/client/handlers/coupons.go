package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"gorm.io/gorm"
)

// CouponsHandler lists coupon assignments for the session user's card.
type CouponsHandler struct {
	db *gorm.DB
}

// NewCouponsHandler constructs a CouponsHandler.
func NewCouponsHandler(db *gorm.DB) *CouponsHandler {
	return &CouponsHandler{db: db}
}

// List returns the session user's coupons, unused first.
func (h *CouponsHandler) List(c *gin.Context) {
	user := httpapi.UserFrom(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var card models.Card
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		First(&card).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	var assignments []models.CouponAssignment
	errList := h.db.WithContext(c.Request.Context()).
		Preload("Coupon").
		Where("card_id = ?", card.ID).
		Order("status DESC, id DESC").
		Find(&assignments).Error
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	items := make([]gin.H, 0, len(assignments))
	for _, a := range assignments {
		items = append(items, gin.H{
			"id":          a.ID,
			"status":      a.Status,
			"used_at":     a.UsedAt,
			"code":        a.Coupon.Code,
			"title":       a.Coupon.Title,
			"description": a.Coupon.Description,
			"active_from": a.Coupon.ActiveFrom,
			"active_to":   a.Coupon.ActiveTo,
		})
	}
	c.JSON(http.StatusOK, gin.H{"coupons": items})
}
