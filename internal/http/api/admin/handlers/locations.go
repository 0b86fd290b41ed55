package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/security"
	"gorm.io/gorm"
)

// LocationsHandler manages the tenant's points of sale.
type LocationsHandler struct {
	db *gorm.DB
}

// NewLocationsHandler constructs a LocationsHandler.
func NewLocationsHandler(db *gorm.DB) *LocationsHandler {
	return &LocationsHandler{db: db}
}

// locationRequest defines the request body for create/update.
type locationRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Create adds a location with a fresh POS API key.
func (h *LocationsHandler) Create(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var body locationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}

	key, errKey := security.GeneratePOSAPIKey()
	if errKey != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate key failed"})
		return
	}

	location := models.Location{
		TenantID:  tenantID,
		Name:      name,
		Address:   strings.TrimSpace(body.Address),
		POSAPIKey: key,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&location).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create location failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":          location.ID,
		"name":        location.Name,
		"address":     location.Address,
		"pos_api_key": location.POSAPIKey,
	})
}

// List returns the tenant's locations.
func (h *LocationsHandler) List(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var locations []models.Location
	errList := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID).
		Order("id").
		Find(&locations).Error
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	items := make([]gin.H, 0, len(locations))
	for _, location := range locations {
		items = append(items, gin.H{
			"id":         location.ID,
			"name":       location.Name,
			"address":    location.Address,
			"created_at": location.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"locations": items})
}

// Update renames or re-addresses a location.
func (h *LocationsHandler) Update(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)
	locationID, ok := pathID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	var body locationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	location, errLoad := h.load(c, tenantID, locationID)
	if errLoad != nil {
		return
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(body.Name); name != "" {
		updates["name"] = name
	}
	if address := strings.TrimSpace(body.Address); address != "" {
		updates["address"] = address
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(location).
		Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": location.ID, "updated": true})
}

// RegenerateKey rotates a location's POS API key. The old key stops working
// immediately.
func (h *LocationsHandler) RegenerateKey(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)
	locationID, ok := pathID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	location, errLoad := h.load(c, tenantID, locationID)
	if errLoad != nil {
		return
	}

	key, errKey := security.GeneratePOSAPIKey()
	if errKey != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate key failed"})
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(location).
		Update("pos_api_key", key).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": location.ID, "pos_api_key": key})
}

func (h *LocationsHandler) load(c *gin.Context, tenantID, locationID uint64) (*models.Location, error) {
	var location models.Location
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", locationID, tenantID).
		First(&location).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
			return nil, errFind
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, errFind
	}
	return &location, nil
}
