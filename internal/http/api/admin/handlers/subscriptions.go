package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
)

// SubscriptionHandler serves the admin subscription list view.
type SubscriptionHandler struct {
	db *gorm.DB
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(db *gorm.DB) *SubscriptionHandler {
	return &SubscriptionHandler{db: db}
}

// subscriptionListQuery defines filters for the subscription list view.
type subscriptionListQuery struct {
	Page   int    `form:"page,default=1"`   // Page number.
	Limit  int    `form:"limit,default=20"` // Page size.
	UserID uint64 `form:"user_id"`          // Optional user filter.
	PlanID uint64 `form:"plan_id"`          // Optional plan filter.
	Status string `form:"status"`           // Optional status filter.
}

// List returns subscriptions with user and plan names attached.
func (h *SubscriptionHandler) List(c *gin.Context) {
	var q subscriptionListQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	base := h.db.WithContext(c.Request.Context()).Model(&models.Subscription{})
	if q.UserID != 0 {
		base = base.Where("user_id = ?", q.UserID)
	}
	if q.PlanID != 0 {
		base = base.Where("plan_id = ?", q.PlanID)
	}
	if status := models.SubscriptionStatus(strings.TrimSpace(q.Status)); status != "" {
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		base = base.Where("status = ?", status)
	}

	var total int64
	if errCount := base.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count subscriptions failed"})
		return
	}

	var rows []models.Subscription
	if errFind := base.
		Preload("User").
		Preload("Plan").
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list subscriptions failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatSubscription(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"subscriptions": out,
		"total":         total,
		"page":          q.Page,
		"limit":         q.Limit,
	})
}

// formatSubscription converts a subscription with its preloaded associations
// into a response payload.
func formatSubscription(s *models.Subscription) gin.H {
	entry := gin.H{
		"id":         s.ID,
		"user_id":    s.UserID,
		"user_name":  s.User.Name,
		"user_email": s.User.Email,
		"plan_id":    s.PlanID,
		"plan_name":  s.Plan.Name,
		"status":     s.Status,
		"price_paid": s.PricePaid,
		"start_date": s.StartDate.Format("2006-01-02"),
		"created_at": s.CreatedAt,
	}
	if s.EndDate != nil {
		entry["end_date"] = s.EndDate.Format("2006-01-02")
	}
	return entry
}
