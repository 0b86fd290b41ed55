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

// StaffHandler manages cashier and admin accounts.
type StaffHandler struct {
	db *gorm.DB
}

// NewStaffHandler constructs a StaffHandler.
func NewStaffHandler(db *gorm.DB) *StaffHandler {
	return &StaffHandler{db: db}
}

// createStaffRequest defines the request body for staff creation.
type createStaffRequest struct {
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Role       string  `json:"role"`
	LocationID *uint64 `json:"location_id"`
}

// Create registers a staff account with its profile.
func (h *StaffHandler) Create(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var body createStaffRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	password := strings.TrimSpace(body.Password)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email or password"})
		return
	}

	role := models.Role(strings.ToUpper(strings.TrimSpace(body.Role)))
	if role == "" {
		role = models.RoleCashier
	}
	if role != models.RoleCashier && role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
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

	var exists models.User
	errCheck := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		First(&exists).Error
	if errCheck == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	} else if !errors.Is(errCheck, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user := models.User{
		TenantID:      tenantID,
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		EmailVerified: true,
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&user).Error; errCreate != nil {
			return errCreate
		}
		profile := models.StaffProfile{
			UserID:     user.ID,
			TenantID:   tenantID,
			LocationID: body.LocationID,
			IsActive:   true,
		}
		return tx.Create(&profile).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create staff failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email, "role": user.Role})
}

// List returns the tenant's staff accounts.
func (h *StaffHandler) List(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var profiles []models.StaffProfile
	errList := h.db.WithContext(c.Request.Context()).
		Preload("User").
		Preload("Location").
		Where("tenant_id = ?", tenantID).
		Order("id DESC").
		Find(&profiles).Error
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	items := make([]gin.H, 0, len(profiles))
	for _, profile := range profiles {
		item := gin.H{
			"id":        profile.ID,
			"user_id":   profile.UserID,
			"email":     profile.User.Email,
			"role":      profile.User.Role,
			"is_active": profile.IsActive,
		}
		if profile.Location != nil {
			item["location"] = gin.H{"id": profile.Location.ID, "name": profile.Location.Name}
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"staff": items})
}

// updateStaffRequest defines the request body for staff updates.
type updateStaffRequest struct {
	IsActive   *bool   `json:"is_active"`
	LocationID *uint64 `json:"location_id"`
}

// Update changes a staff profile's active flag or home location.
func (h *StaffHandler) Update(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)
	profileID, ok := pathID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid staff id"})
		return
	}

	var body updateStaffRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var profile models.StaffProfile
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", profileID, tenantID).
		First(&profile).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "staff not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if body.LocationID != nil {
		var location models.Location
		errLoc := h.db.WithContext(c.Request.Context()).
			Where("id = ? AND tenant_id = ?", *body.LocationID, tenantID).
			First(&location).Error
		if errLoc != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "location not found"})
			return
		}
		updates["location_id"] = *body.LocationID
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&profile).
		Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": profile.ID, "updated": true})
}
