package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/qrtoken"
	"gorm.io/gorm"
)

// CardHandler handles the client card and operation history endpoints.
type CardHandler struct {
	db     *gorm.DB
	tokens *qrtoken.Service
}

// NewCardHandler constructs a CardHandler.
func NewCardHandler(db *gorm.DB, tokens *qrtoken.Service) *CardHandler {
	return &CardHandler{db: db, tokens: tokens}
}

// IssueQR mints a fresh single-use QR token for the session user's card.
func (h *CardHandler) IssueQR(c *gin.Context) {
	user := httpapi.UserFrom(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var card models.Card
	errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		First(&card).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if card.Status != models.CardActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "CARD_BLOCKED"})
		return
	}
	// Unverified accounts cannot present a scannable card.
	if !user.EmailVerified || (user.Phone != "" && !user.PhoneVerified) {
		c.JSON(http.StatusForbidden, gin.H{"error": "VERIFICATION_REQUIRED"})
		return
	}

	token, errIssue := h.tokens.Issue(c.Request.Context(), &card)
	if errIssue != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":       token.Token,
		"expires_at":  token.ExpiresAt,
		"ttl_seconds": int(qrtoken.TokenTTL / time.Second),
	})
}

// Operations lists the session user's ledger history, newest first.
func (h *CardHandler) Operations(c *gin.Context) {
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

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	query := h.db.WithContext(c.Request.Context()).
		Where("card_id = ?", card.ID)
	if opType := c.Query("type"); opType != "" {
		query = query.Where("type = ?", opType)
	}
	if receipt := c.Query("receipt_id"); receipt != "" {
		query = query.Where("receipt_id = ?", receipt)
	}
	if from := c.Query("from"); from != "" {
		if ts, errParse := time.Parse(time.RFC3339, from); errParse == nil {
			query = query.Where("created_at >= ?", ts)
		}
	}
	if to := c.Query("to"); to != "" {
		if ts, errParse := time.Parse(time.RFC3339, to); errParse == nil {
			query = query.Where("created_at < ?", ts)
		}
	}

	var ops []models.Operation
	errList := query.
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&ops).Error
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	items := make([]gin.H, 0, len(ops))
	for _, op := range ops {
		items = append(items, gin.H{
			"id":            op.ID,
			"type":          op.Type,
			"status":        op.Status,
			"source":        op.Source,
			"amount":        op.Amount,
			"points":        op.Points,
			"balance_after": op.BalanceAfter,
			"fail_reason":   op.FailReason,
			"created_at":    op.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"operations": items, "balance": card.Balance, "tier": card.Tier})
}
