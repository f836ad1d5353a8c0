package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
)

// DashboardHandler serves the admin dashboard snapshot.
type DashboardHandler struct {
	db *gorm.DB
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// Snapshot returns the headline numbers for the admin dashboard: entity
// counts, the current calendar month's revenue, total recorded usage, the
// unread alert count, and the five most recent subscriptions.
func (h *DashboardHandler) Snapshot(c *gin.Context) {
	ctx := c.Request.Context()
	conn := h.db.WithContext(ctx)

	var totalUsers int64
	if errCount := conn.Model(&models.User{}).Count(&totalUsers).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count users failed"})
		return
	}
	var activeSubs int64
	if errCount := conn.Model(&models.Subscription{}).
		Where("status = ?", models.SubscriptionActive).
		Count(&activeSubs).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count subscriptions failed"})
		return
	}
	var totalPlans int64
	if errCount := conn.Model(&models.Plan{}).Count(&totalPlans).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count plans failed"})
		return
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var monthlyRevenue float64
	if errSum := conn.Model(&models.Subscription{}).
		Where("status = ? AND created_at >= ?", models.SubscriptionActive, monthStart).
		Select("COALESCE(SUM(price_paid), 0)").
		Scan(&monthlyRevenue).Error; errSum != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sum revenue failed"})
		return
	}

	var totalUsageGB float64
	if errSum := conn.Model(&models.Usage{}).
		Select("COALESCE(SUM(data_used_gb), 0)").
		Scan(&totalUsageGB).Error; errSum != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sum usage failed"})
		return
	}

	var unreadAlerts int64
	if errCount := conn.Model(&models.Alert{}).
		Where("is_read = ?", false).
		Count(&unreadAlerts).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count alerts failed"})
		return
	}

	var recent []models.Subscription
	if errFind := conn.
		Preload("User").
		Preload("Plan").
		Order("created_at DESC").
		Limit(5).
		Find(&recent).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list subscriptions failed"})
		return
	}
	recentOut := make([]gin.H, 0, len(recent))
	for i := range recent {
		recentOut = append(recentOut, formatSubscription(&recent[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users":          totalUsers,
		"active_subscriptions": activeSubs,
		"total_plans":          totalPlans,
		"monthly_revenue":      monthlyRevenue,
		"total_usage_gb":       totalUsageGB,
		"unread_alerts":        unreadAlerts,
		"recent_subscriptions": recentOut,
	})
}
