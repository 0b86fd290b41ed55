package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RulesHandler manages earning rules and their user targeting.
type RulesHandler struct {
	db *gorm.DB
}

// NewRulesHandler constructs a RulesHandler.
func NewRulesHandler(db *gorm.DB) *RulesHandler {
	return &RulesHandler{db: db}
}

// List returns the tenant's rules with their targets.
func (h *RulesHandler) List(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var ruleRows []models.Rule
	errList := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID).
		Order("id DESC").
		Find(&ruleRows).Error
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var targets []models.RuleTarget
	if errTargets := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID).
		Find(&targets).Error; errTargets != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	targetsByRule := make(map[uint64][]uint64)
	for _, target := range targets {
		targetsByRule[target.RuleID] = append(targetsByRule[target.RuleID], target.UserID)
	}

	items := make([]gin.H, 0, len(ruleRows))
	for _, rule := range ruleRows {
		items = append(items, gin.H{
			"id":               rule.ID,
			"location_id":      rule.LocationID,
			"earn_percent":     rule.EarnPercent,
			"rounding_mode":    rule.RoundingMode,
			"min_amount":       rule.MinAmount,
			"bronze_threshold": rule.BronzeThreshold,
			"silver_threshold": rule.SilverThreshold,
			"gold_threshold":   rule.GoldThreshold,
			"applies_to_all":   rule.AppliesToAll,
			"user_ids":         targetsByRule[rule.ID],
		})
	}
	c.JSON(http.StatusOK, gin.H{"rules": items})
}

// ruleRequest defines the request body for rule creation.
type ruleRequest struct {
	LocationID      *uint64         `json:"location_id"`
	EarnPercent     decimal.Decimal `json:"earn_percent"`
	RoundingMode    string          `json:"rounding_mode"`
	MinAmount       decimal.Decimal `json:"min_amount"`
	BronzeThreshold int64           `json:"bronze_threshold"`
	SilverThreshold *int64          `json:"silver_threshold"`
	GoldThreshold   *int64          `json:"gold_threshold"`
	UserIDs         []uint64        `json:"user_ids"`
}

// Create adds a rule. A rule with user_ids targets exactly those users and
// overrides the location/tenant defaults for them; otherwise it becomes the
// default for its scope.
func (h *RulesHandler) Create(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var body ruleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	mode := models.RoundingMode(strings.ToUpper(strings.TrimSpace(body.RoundingMode)))
	if mode == "" {
		mode = models.RoundFloor
	}
	if mode != models.RoundFloor && mode != models.RoundHalf && mode != models.RoundCeil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rounding mode"})
		return
	}
	if body.EarnPercent.IsNegative() || body.MinAmount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "negative values not allowed"})
		return
	}

	if body.LocationID != nil {
		var location models.Location
		errFind := h.db.WithContext(c.Request.Context()).
			Where("id = ? AND tenant_id = ?", *body.LocationID, tenantID).
			First(&location).Error
		if errFind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "location not found"})
			return
		}
	}

	silver := int64(500)
	if body.SilverThreshold != nil {
		silver = *body.SilverThreshold
	}
	gold := int64(1500)
	if body.GoldThreshold != nil {
		gold = *body.GoldThreshold
	}
	if silver < 0 || gold < silver {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thresholds"})
		return
	}

	rule := models.Rule{
		TenantID:        tenantID,
		LocationID:      body.LocationID,
		EarnPercent:     body.EarnPercent,
		RoundingMode:    mode,
		MinAmount:       body.MinAmount,
		BronzeThreshold: body.BronzeThreshold,
		SilverThreshold: silver,
		GoldThreshold:   gold,
		AppliesToAll:    len(body.UserIDs) == 0,
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&rule).Error; errCreate != nil {
			return errCreate
		}
		for _, userID := range body.UserIDs {
			var user models.User
			if errUser := tx.Where("id = ? AND tenant_id = ?", userID, tenantID).First(&user).Error; errUser != nil {
				return errUser
			}
			target := models.RuleTarget{RuleID: rule.ID, UserID: userID, TenantID: tenantID}
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
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create rule failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": rule.ID})
}

// Delete removes a rule and its targets.
func (h *RulesHandler) Delete(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)
	ruleID, ok := pathID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var rule models.Rule
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", ruleID, tenantID).
		First(&rule).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errTargets := tx.Where("rule_id = ?", rule.ID).Delete(&models.RuleTarget{}).Error; errTargets != nil {
			return errTargets
		}
		return tx.Delete(&rule).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
