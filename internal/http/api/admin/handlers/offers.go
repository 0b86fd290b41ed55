package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OffersHandler manages promotions and coupon inventory.
type OffersHandler struct {
	db *gorm.DB
}

// NewOffersHandler constructs an OffersHandler.
func NewOffersHandler(db *gorm.DB) *OffersHandler {
	return &OffersHandler{db: db}
}

// offerRequest defines the request body for offer creation.
type offerRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	BonusPoints int64           `json:"bonus_points"`
	ActiveFrom  *time.Time      `json:"active_from"`
	ActiveTo    *time.Time      `json:"active_to"`
	UserIDs     []uint64        `json:"user_ids"`
}

// Create adds an offer, optionally targeted to specific users.
func (h *OffersHandler) Create(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var body offerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing title"})
		return
	}

	offerType := models.OfferType(strings.ToUpper(strings.TrimSpace(body.Type)))
	if offerType == "" {
		offerType = models.OfferBonus
	}
	if offerType != models.OfferMultiplier && offerType != models.OfferBonus && offerType != models.OfferCoupon {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer type"})
		return
	}

	multiplier := body.Multiplier
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(1)
	}

	offer := models.Offer{
		TenantID:     tenantID,
		Title:        title,
		Description:  strings.TrimSpace(body.Description),
		Type:         offerType,
		Multiplier:   multiplier,
		BonusPoints:  body.BonusPoints,
		ActiveFrom:   body.ActiveFrom,
		ActiveTo:     body.ActiveTo,
		IsActive:     true,
		AppliesToAll: len(body.UserIDs) == 0,
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&offer).Error; errCreate != nil {
			return errCreate
		}
		for _, userID := range body.UserIDs {
			var user models.User
			if errUser := tx.Where("id = ? AND tenant_id = ?", userID, tenantID).First(&user).Error; errUser != nil {
				return errUser
			}
			target := models.OfferTarget{OfferID: offer.ID, UserID: userID, TenantID: tenantID}
			if errTarget := tx.Create(&target).Error; errTarget != nil {
				return errTarget
			}
		}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "targeted user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create offer failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": offer.ID})
}

// List returns the tenant's offers, newest first.
func (h *OffersHandler) List(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var offers []models.Offer
	errList := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID).
		Order("id DESC").
		Find(&offers).Error
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	items := make([]gin.H, 0, len(offers))
	for _, offer := range offers {
		items = append(items, gin.H{
			"id":             offer.ID,
			"title":          offer.Title,
			"description":    offer.Description,
			"type":           offer.Type,
			"multiplier":     offer.Multiplier,
			"bonus_points":   offer.BonusPoints,
			"active_from":    offer.ActiveFrom,
			"active_to":      offer.ActiveTo,
			"is_active":      offer.IsActive,
			"applies_to_all": offer.AppliesToAll,
		})
	}
	c.JSON(http.StatusOK, gin.H{"offers": items})
}

// Deactivate hides an offer from clients.
func (h *OffersHandler) Deactivate(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)
	offerID, ok := pathID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer id"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).
		Model(&models.Offer{}).
		Where("id = ? AND tenant_id = ?", offerID, tenantID).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "offer not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deactivated": true})
}

// couponRequest defines the request body for coupon creation.
type couponRequest struct {
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ActiveFrom  *time.Time `json:"active_from"`
	ActiveTo    *time.Time `json:"active_to"`
}

// CreateCoupon registers a coupon definition.
func (h *OffersHandler) CreateCoupon(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var body couponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.ToUpper(strings.TrimSpace(body.Code))
	title := strings.TrimSpace(body.Title)
	if code == "" || title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code or title"})
		return
	}

	coupon := models.Coupon{
		TenantID:    tenantID,
		Code:        code,
		Title:       title,
		Description: strings.TrimSpace(body.Description),
		ActiveFrom:  body.ActiveFrom,
		ActiveTo:    body.ActiveTo,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&coupon).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "coupon code already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": coupon.ID, "code": coupon.Code})
}

// assignCouponRequest defines the request body for coupon assignment.
type assignCouponRequest struct {
	CardID uint64 `json:"card_id"`
}

// AssignCoupon hands a coupon to a card.
func (h *OffersHandler) AssignCoupon(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)
	couponID, ok := pathID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coupon id"})
		return
	}

	var body assignCouponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var coupon models.Coupon
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", couponID, tenantID).
		First(&coupon).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
		return
	}
	var card models.Card
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", body.CardID, tenantID).
		First(&card).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	assignment := models.CouponAssignment{
		TenantID: tenantID,
		CardID:   card.ID,
		CouponID: coupon.ID,
		Status:   models.CouponUnused,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&assignment).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "assign failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": assignment.ID})
}
