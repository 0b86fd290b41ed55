package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"gorm.io/gorm"
)

// OperationsHandler lists recent ledger activity for the staff app.
type OperationsHandler struct {
	db *gorm.DB
}

// NewOperationsHandler constructs an OperationsHandler.
func NewOperationsHandler(db *gorm.DB) *OperationsHandler {
	return &OperationsHandler{db: db}
}

// List returns the tenant's recent operations, optionally filtered by
// location or status.
func (h *OperationsHandler) List(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID)
	if location := c.Query("location_id"); location != "" {
		if id, errParse := strconv.ParseUint(location, 10, 64); errParse == nil {
			query = query.Where("location_id = ?", id)
		}
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if receipt := c.Query("receipt_id"); receipt != "" {
		query = query.Where("receipt_id = ?", receipt)
	}

	var ops []models.Operation
	if errList := query.Order("id DESC").Limit(limit).Find(&ops).Error; errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	items := make([]gin.H, 0, len(ops))
	for _, op := range ops {
		items = append(items, gin.H{
			"id":            op.ID,
			"card_id":       op.CardID,
			"type":          op.Type,
			"source":        op.Source,
			"status":        op.Status,
			"amount":        op.Amount,
			"points":        op.Points,
			"balance_after": op.BalanceAfter,
			"receipt_id":    op.ReceiptID,
			"fail_reason":   op.FailReason,
			"location_id":   op.LocationID,
			"created_at":    op.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"operations": items})
}
