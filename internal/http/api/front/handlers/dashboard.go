package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
)

// DashboardHandler serves the user dashboard.
type DashboardHandler struct {
	db *gorm.DB
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// Snapshot returns the caller's active subscription, this month's usage
// total, and the unread alert count addressed to them.
func (h *DashboardHandler) Snapshot(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	conn := h.db.WithContext(ctx)

	var current models.Subscription
	hasSubscription := true
	errFind := conn.
		Preload("Plan").
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		Order("created_at DESC").
		First(&current).Error
	if errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		hasSubscription = false
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var monthUsage float64
	if errSum := conn.Model(&models.Usage{}).
		Where("user_id = ? AND usage_date >= ?", userID, monthStart).
		Select("COALESCE(SUM(data_used_gb), 0)").
		Scan(&monthUsage).Error; errSum != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sum usage failed"})
		return
	}

	var unreadAlerts int64
	if errCount := conn.Model(&models.Alert{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unreadAlerts).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count alerts failed"})
		return
	}

	out := gin.H{
		"month_usage_gb": monthUsage,
		"unread_alerts":  unreadAlerts,
	}
	if hasSubscription {
		sub := gin.H{
			"id":         current.ID,
			"status":     current.Status,
			"price_paid": current.PricePaid,
			"start_date": current.StartDate.Format("2006-01-02"),
			"plan": gin.H{
				"id":               current.Plan.ID,
				"name":             current.Plan.Name,
				"monthly_price":    current.Plan.MonthlyPrice,
				"monthly_quota_gb": current.Plan.MonthlyQuotaGB,
			},
		}
		if current.Plan.MonthlyQuotaGB > 0 {
			sub["quota_used_pct"] = monthUsage / float64(current.Plan.MonthlyQuotaGB) * 100
		}
		out["subscription"] = sub
	} else {
		out["subscription"] = nil
	}
	c.JSON(http.StatusOK, out)
}
