package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/audit"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"gorm.io/gorm"
)

// CustomersHandler manages client accounts and their cards.
type CustomersHandler struct {
	db   *gorm.DB
	sink *audit.Sink
}

// NewCustomersHandler constructs a CustomersHandler.
func NewCustomersHandler(db *gorm.DB, sink *audit.Sink) *CustomersHandler {
	return &CustomersHandler{db: db, sink: sink}
}

// List returns clients with their cards, optionally filtered by a search
// term over email and phone.
func (h *CustomersHandler) List(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)
	limit, offset := pageParams(c, 25, 100)

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("tenant_id = ? AND role = ?", tenantID, models.RoleClient)
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		query = query.Where("email LIKE ? OR phone LIKE ?", like, like)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var users []models.User
	if errList := query.Order("id DESC").Limit(limit).Offset(offset).Find(&users).Error; errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	userIDs := make([]uint64, 0, len(users))
	for _, user := range users {
		userIDs = append(userIDs, user.ID)
	}
	cardsByUser := make(map[uint64]models.Card, len(users))
	if len(userIDs) > 0 {
		var cards []models.Card
		if errCards := h.db.WithContext(c.Request.Context()).
			Where("user_id IN ?", userIDs).
			Find(&cards).Error; errCards != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		for _, card := range cards {
			cardsByUser[card.UserID] = card
		}
	}

	items := make([]gin.H, 0, len(users))
	for _, user := range users {
		item := gin.H{
			"id":             user.ID,
			"email":          user.Email,
			"phone":          user.Phone,
			"email_verified": user.EmailVerified,
			"created_at":     user.CreatedAt,
		}
		if card, ok := cardsByUser[user.ID]; ok {
			item["card"] = gin.H{
				"id":      card.ID,
				"status":  card.Status,
				"balance": card.Balance,
				"tier":    card.Tier,
			}
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"customers": items, "total": total})
}

// BlockCard suspends a client's card.
func (h *CustomersHandler) BlockCard(c *gin.Context) {
	h.setCardStatus(c, models.CardBlocked, "card_block")
}

// UnblockCard reactivates a client's card.
func (h *CustomersHandler) UnblockCard(c *gin.Context) {
	h.setCardStatus(c, models.CardActive, "card_unblock")
}

func (h *CustomersHandler) setCardStatus(c *gin.Context, status models.CardStatus, action string) {
	tenantID := httpapi.TenantIDFrom(c)
	cardID, ok := pathID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}

	var card models.Card
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", cardID, tenantID).
		First(&card).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&card).
		Update("status", status).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	adminID := httpapi.UserIDFrom(c)
	h.sink.Emit(audit.Event{
		TenantID: tenantID,
		UserID:   &adminID,
		Action:   action,
		Metadata: map[string]any{"card_id": card.ID},
	})
	c.JSON(http.StatusOK, gin.H{"id": card.ID, "status": status})
}
