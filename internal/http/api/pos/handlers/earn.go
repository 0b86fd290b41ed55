package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/ledger"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// POSHandler handles point-of-sale integrations. POS terminals dedup by
// receipt id rather than idempotency keys.
type POSHandler struct {
	db     *gorm.DB
	engine *ledger.Engine
}

// NewPOSHandler constructs a POSHandler.
func NewPOSHandler(db *gorm.DB, engine *ledger.Engine) *POSHandler {
	return &POSHandler{db: db, engine: engine}
}

// earnRequest defines the request body for POS earn.
type earnRequest struct {
	Token      string          `json:"token"`
	Amount     decimal.Decimal `json:"amount"`
	ReceiptID  string          `json:"receipt_id"`
	LocationID *uint64         `json:"location_id"`
}

// Earn credits points for a purchase submitted by a POS terminal.
func (h *POSHandler) Earn(c *gin.Context) {
	var body earnRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	token := strings.TrimSpace(body.Token)
	receiptID := strings.TrimSpace(body.ReceiptID)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	// The receipt id is the POS dedup handle; without it a retry would
	// double-credit.
	if receiptID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "reason": ledger.CodeIdempotencyRequired})
		return
	}

	tenantID := httpapi.TenantIDFrom(c)
	locationID := httpapi.POSLocationFrom(c)
	if body.LocationID != nil {
		var location models.Location
		errFind := h.db.WithContext(c.Request.Context()).
			Where("id = ? AND tenant_id = ?", *body.LocationID, tenantID).
			First(&location).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"status": "failed", "reason": "LOCATION_NOT_FOUND"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		locationID = &location.ID
	}

	res, errOp := h.engine.EarnOrRedeem(c.Request.Context(), ledger.Request{
		TenantID:   tenantID,
		Type:       models.OpEarn,
		Source:     models.SourcePOS,
		Token:      token,
		Amount:     body.Amount,
		ReceiptID:  receiptID,
		LocationID: locationID,
	})
	if errOp != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}
	respondResult(c, res)
}

// respondResult mirrors the staff wire shape.
func respondResult(c *gin.Context, res *ledger.Result) {
	if res.OK() {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"points":   res.Points,
			"balance":  res.Balance,
			"replayed": res.Replayed,
		})
		return
	}
	status := http.StatusBadRequest
	switch res.Code {
	case ledger.CodeQRNotFound:
		status = http.StatusNotFound
	case ledger.CodeCardBusy:
		status = http.StatusConflict
	case ledger.CodeMaxEarnPerDay, ledger.CodeMaxOpsPerHour:
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{"status": "failed", "reason": res.Code})
}
