package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/ledger"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/qrtoken"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ScanHandler drives the cashier scan flow: QR preview, earn, redeem and
// refund.
type ScanHandler struct {
	db     *gorm.DB
	engine *ledger.Engine
	tokens *qrtoken.Service
}

// NewScanHandler constructs a ScanHandler.
func NewScanHandler(db *gorm.DB, engine *ledger.Engine, tokens *qrtoken.Service) *ScanHandler {
	return &ScanHandler{db: db, engine: engine, tokens: tokens}
}

// validateRequest defines the request body for QR preview.
type validateRequest struct {
	Token string `json:"token"`
}

// Validate previews a scanned token without consuming it: masked client
// identity plus card state, so the cashier can confirm before charging.
func (h *ScanHandler) Validate(c *gin.Context) {
	var body validateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	token := strings.TrimSpace(body.Token)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	qr, errValidate := h.tokens.Validate(c.Request.Context(), httpapi.TenantIDFrom(c), token)
	if errValidate != nil {
		code, known := validationCode(errValidate)
		if !known {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(statusForCode(code), gin.H{"status": "failed", "reason": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"email":   maskEmail(qr.Card.User.Email),
		"phone":   maskPhone(qr.Card.User.Phone),
		"balance": qr.Card.Balance,
		"tier":    qr.Card.Tier,
	})
}

// operationRequest defines the request body for earn and redeem.
type operationRequest struct {
	Token          string          `json:"token"`
	Amount         decimal.Decimal `json:"amount"`
	ReceiptID      string          `json:"receipt_id"`
	LocationID     *uint64         `json:"location_id"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// Earn credits points for a purchase.
func (h *ScanHandler) Earn(c *gin.Context) {
	h.operate(c, models.OpEarn)
}

// Redeem debits points against the balance.
func (h *ScanHandler) Redeem(c *gin.Context) {
	h.operate(c, models.OpRedeem)
}

func (h *ScanHandler) operate(c *gin.Context, opType models.OperationType) {
	var body operationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	token := strings.TrimSpace(body.Token)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	locationID, ok := h.resolveLocation(c, body.LocationID)
	if !ok {
		return
	}
	staffID := httpapi.UserIDFrom(c)

	res, errOp := h.engine.EarnOrRedeem(c.Request.Context(), ledger.Request{
		TenantID:       httpapi.TenantIDFrom(c),
		Type:           opType,
		Source:         models.SourceStaffApp,
		Token:          token,
		Amount:         body.Amount,
		IdempotencyKey: idempotencyKey(c, body.IdempotencyKey),
		ReceiptID:      strings.TrimSpace(body.ReceiptID),
		LocationID:     locationID,
		StaffID:        &staffID,
	})
	if errOp != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}
	respondResult(c, res)
}

// refundRequest defines the request body for refunds.
type refundRequest struct {
	ReceiptID      string  `json:"receipt_id"`
	LocationID     *uint64 `json:"location_id"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// Refund reverses the operation recorded under the receipt.
func (h *ScanHandler) Refund(c *gin.Context) {
	var body refundRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	locationID, ok := h.resolveLocation(c, body.LocationID)
	if !ok {
		return
	}
	staffID := httpapi.UserIDFrom(c)

	res, errOp := h.engine.Refund(c.Request.Context(), ledger.RefundRequest{
		TenantID:       httpapi.TenantIDFrom(c),
		ReceiptID:      strings.TrimSpace(body.ReceiptID),
		IdempotencyKey: idempotencyKey(c, body.IdempotencyKey),
		Source:         models.SourceStaffApp,
		StaffID:        &staffID,
		LocationID:     locationID,
	})
	if errOp != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}
	respondResult(c, res)
}

// resolveLocation validates an explicit location id against the tenant, or
// falls back to the staff member's home location.
func (h *ScanHandler) resolveLocation(c *gin.Context, requested *uint64) (*uint64, bool) {
	tenantID := httpapi.TenantIDFrom(c)

	if requested != nil {
		var location models.Location
		errFind := h.db.WithContext(c.Request.Context()).
			Where("id = ? AND tenant_id = ?", *requested, tenantID).
			First(&location).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"status": "failed", "reason": "LOCATION_NOT_FOUND"})
				return nil, false
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return nil, false
		}
		return &location.ID, true
	}

	var profile models.StaffProfile
	errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", httpapi.UserIDFrom(c)).
		First(&profile).Error
	if errFind == nil && profile.LocationID != nil {
		return profile.LocationID, true
	}
	return nil, true
}

func validationCode(err error) (ledger.Code, bool) {
	switch {
	case errors.Is(err, qrtoken.ErrNotFound):
		return ledger.CodeQRNotFound, true
	case errors.Is(err, qrtoken.ErrExpired):
		return ledger.CodeQRExpired, true
	case errors.Is(err, qrtoken.ErrUsed):
		return ledger.CodeQRUsed, true
	case errors.Is(err, qrtoken.ErrCardBlocked):
		return ledger.CodeCardBlocked, true
	}
	return "", false
}
