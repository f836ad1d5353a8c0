package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
)

// AlertHandler serves the admin alert feed.
type AlertHandler struct {
	db *gorm.DB
}

// NewAlertHandler constructs an AlertHandler.
func NewAlertHandler(db *gorm.DB) *AlertHandler {
	return &AlertHandler{db: db}
}

// alertListQuery defines filters for the alert feed.
type alertListQuery struct {
	Page       int  `form:"page,default=1"`   // Page number.
	Limit      int  `form:"limit,default=20"` // Page size.
	UnreadOnly bool `form:"unread"`           // Restrict to unread alerts.
}

// List returns alerts newest-first.
func (h *AlertHandler) List(c *gin.Context) {
	var q alertListQuery
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

	base := h.db.WithContext(c.Request.Context()).Model(&models.Alert{})
	if q.UnreadOnly {
		base = base.Where("is_read = ?", false)
	}

	var total int64
	if errCount := base.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count alerts failed"})
		return
	}
	var unread int64
	if errCount := h.db.WithContext(c.Request.Context()).
		Model(&models.Alert{}).
		Where("is_read = ?", false).
		Count(&unread).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count alerts failed"})
		return
	}

	var rows []models.Alert
	if errFind := base.
		Order("created_at DESC").
		Order("id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list alerts failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, gin.H{
			"id":         rows[i].ID,
			"user_id":    rows[i].UserID,
			"type":       rows[i].Type,
			"title":      rows[i].Title,
			"message":    rows[i].Message,
			"is_read":    rows[i].IsRead,
			"created_at": rows[i].CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts": out,
		"total":  total,
		"unread": unread,
		"page":   q.Page,
		"limit":  q.Limit,
	})
}

// markReadRequest identifies the alert to mark read.
type markReadRequest struct {
	ID uint64 `json:"id"` // Target alert ID.
}

// MarkRead flags a single alert as read.
func (h *AlertHandler) MarkRead(c *gin.Context) {
	var body markReadRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	ctx := c.Request.Context()
	var alert models.Alert
	if errFind := h.db.WithContext(ctx).First(&alert, body.ID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if !alert.IsRead {
		if errUpdate := h.db.WithContext(ctx).
			Model(&models.Alert{}).
			Where("id = ?", alert.ID).
			Update("is_read", true).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update alert failed"})
			return
		}
		alert.IsRead = true
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": alert.ID, "is_read": alert.IsRead})
}
