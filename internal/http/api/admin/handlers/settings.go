package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/audit"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/security"
	"gorm.io/gorm"
)

// SettingsHandler manages tenant presentation settings and the tenant-wide
// POS key.
type SettingsHandler struct {
	db   *gorm.DB
	sink *audit.Sink
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB, sink *audit.Sink) *SettingsHandler {
	return &SettingsHandler{db: db, sink: sink}
}

// Get returns the tenant's settings, creating defaults on first read.
func (h *SettingsHandler) Get(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	settings, errLoad := h.loadOrCreate(c, tenantID)
	if errLoad != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"brand_color": settings.BrandColor,
		"email_from":  settings.EmailFrom,
		"logo_url":    settings.LogoURL,
	})
}

// settingsRequest defines the request body for settings updates.
type settingsRequest struct {
	BrandColor string `json:"brand_color"`
	EmailFrom  string `json:"email_from"`
	LogoURL    string `json:"logo_url"`
}

// Update writes the tenant's settings.
func (h *SettingsHandler) Update(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var body settingsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	settings, errLoad := h.loadOrCreate(c, tenantID)
	if errLoad != nil {
		return
	}

	updates := map[string]any{}
	if color := strings.TrimSpace(body.BrandColor); color != "" {
		updates["brand_color"] = color
	}
	if from := strings.TrimSpace(body.EmailFrom); from != "" {
		updates["email_from"] = from
	}
	if logo := strings.TrimSpace(body.LogoURL); logo != "" {
		updates["logo_url"] = logo
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(settings).
		Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// RegeneratePOSKey rotates the tenant-wide POS API key.
func (h *SettingsHandler) RegeneratePOSKey(c *gin.Context) {
	tenant := httpapi.TenantFrom(c)
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		return
	}

	key, errKey := security.GeneratePOSAPIKey()
	if errKey != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate key failed"})
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.Tenant{}).
		Where("id = ?", tenant.ID).
		Update("pos_api_key", key).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	adminID := httpapi.UserIDFrom(c)
	h.sink.Emit(audit.Event{
		TenantID: tenant.ID,
		UserID:   &adminID,
		Action:   "pos_key_rotate",
	})
	c.JSON(http.StatusOK, gin.H{"pos_api_key": key})
}

func (h *SettingsHandler) loadOrCreate(c *gin.Context, tenantID uint64) (*models.OrgSettings, error) {
	var settings models.OrgSettings
	errFind := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID).
		First(&settings).Error
	if errFind == nil {
		return &settings, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, errFind
	}

	settings = models.OrgSettings{TenantID: tenantID, BrandColor: "#2d6a4f"}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&settings).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create settings failed"})
		return nil, errCreate
	}
	return &settings, nil
}
