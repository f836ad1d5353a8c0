package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
)

// UsageHandler serves the caller's usage history.
type UsageHandler struct {
	db *gorm.DB
}

// NewUsageHandler constructs a UsageHandler.
func NewUsageHandler(db *gorm.DB) *UsageHandler {
	return &UsageHandler{db: db}
}

// usageListQuery defines the optional date window for the usage list.
type usageListQuery struct {
	From string `form:"from"` // Inclusive start date, YYYY-MM-DD.
	To   string `form:"to"`   // Inclusive end date, YYYY-MM-DD.
}

// List returns the caller's usage rows newest-first, optionally windowed.
func (h *UsageHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var q usageListQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}

	base := h.db.WithContext(c.Request.Context()).
		Model(&models.Usage{}).
		Where("user_id = ?", userID)
	if from := strings.TrimSpace(q.From); from != "" {
		fromDate, errParse := time.Parse("2006-01-02", from)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		base = base.Where("usage_date >= ?", fromDate)
	}
	if to := strings.TrimSpace(q.To); to != "" {
		toDate, errParse := time.Parse("2006-01-02", to)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		base = base.Where("usage_date < ?", toDate.AddDate(0, 0, 1))
	}

	var rows []models.Usage
	if errFind := base.
		Order("usage_date DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list usage failed"})
		return
	}

	var total float64
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		total += rows[i].DataUsedGB
		out = append(out, gin.H{
			"id":           rows[i].ID,
			"usage_date":   rows[i].UsageDate.Format("2006-01-02"),
			"data_used_gb": rows[i].DataUsedGB,
		})
	}
	c.JSON(http.StatusOK, gin.H{"usage": out, "total_gb": total})
}

// recordUsageRequest defines the body for recording a usage row.
type recordUsageRequest struct {
	UsageDate  string  `json:"usage_date"`   // YYYY-MM-DD; defaults to today.
	DataUsedGB float64 `json:"data_used_gb"` // Non-negative GB amount.
}

// Record persists one usage row for the caller.
func (h *UsageHandler) Record(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body recordUsageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.DataUsedGB < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data_used_gb cannot be negative"})
		return
	}

	usageDate := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(body.UsageDate); raw != "" {
		parsed, errParse := time.Parse("2006-01-02", raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid usage_date"})
			return
		}
		usageDate = parsed
	}

	row := models.Usage{
		UserID:     userID,
		UsageDate:  usageDate,
		DataUsedGB: body.DataUsedGB,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record usage failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":           row.ID,
		"usage_date":   row.UsageDate.Format("2006-01-02"),
		"data_used_gb": row.DataUsedGB,
	})
}
