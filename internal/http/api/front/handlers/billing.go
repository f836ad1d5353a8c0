package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
)

// BillingHandler serves the caller's billing history.
type BillingHandler struct {
	db *gorm.DB
}

// NewBillingHandler constructs a BillingHandler.
func NewBillingHandler(db *gorm.DB) *BillingHandler {
	return &BillingHandler{db: db}
}

// History returns the caller's spend grouped by subscription month, oldest
// first, with a running total.
func (h *BillingHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var rows []models.Subscription
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list subscriptions failed"})
		return
	}

	type monthSpend struct {
		total float64
		count int64
	}
	byMonth := map[string]*monthSpend{}
	var totalSpend float64
	for i := range rows {
		key := rows[i].CreatedAt.UTC().Format("2006-01")
		entry := byMonth[key]
		if entry == nil {
			entry = &monthSpend{}
			byMonth[key] = entry
		}
		entry.total += rows[i].PricePaid
		entry.count++
		totalSpend += rows[i].PricePaid
	}

	months := make([]string, 0, len(byMonth))
	for key := range byMonth {
		months = append(months, key)
	}
	sort.Strings(months)

	out := make([]gin.H, 0, len(months))
	for _, key := range months {
		out = append(out, gin.H{
			"month":         key,
			"total":         byMonth[key].total,
			"subscriptions": byMonth[key].count,
		})
	}
	c.JSON(http.StatusOK, gin.H{"months": out, "total_spend": totalSpend})
}
