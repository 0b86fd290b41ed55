package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"gorm.io/gorm"
)

// DashboardHandler aggregates tenant-level KPIs for the admin console.
type DashboardHandler struct {
	db  *gorm.DB
	loc *time.Location
}

// NewDashboardHandler constructs a DashboardHandler. The location anchors
// the "today" aggregates to the reporting timezone.
func NewDashboardHandler(db *gorm.DB, loc *time.Location) *DashboardHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardHandler{db: db, loc: loc}
}

// Summary returns headline counts and today's point flow.
func (h *DashboardHandler) Summary(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)
	ctx := c.Request.Context()

	var clients int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).
		Where("tenant_id = ? AND role = ?", tenantID, models.RoleClient).
		Count(&clients).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	now := time.Now().In(h.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)

	sumPoints := func(opType models.OperationType) (int64, error) {
		var total int64
		err := h.db.WithContext(ctx).Model(&models.Operation{}).
			Where("tenant_id = ? AND type = ? AND status = ? AND created_at >= ?",
				tenantID, opType, models.OpSuccess, dayStart).
			Select("COALESCE(SUM(points), 0)").
			Scan(&total).Error
		return total, err
	}

	earned, errEarned := sumPoints(models.OpEarn)
	if errEarned != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	redeemed, errRedeemed := sumPoints(models.OpRedeem)
	if errRedeemed != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var opsToday int64
	if err := h.db.WithContext(ctx).Model(&models.Operation{}).
		Where("tenant_id = ? AND created_at >= ?", tenantID, dayStart).
		Count(&opsToday).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clients":               clients,
		"points_earned_today":   earned,
		"points_redeemed_today": redeemed,
		"operations_today":      opsToday,
	})
}
