package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
)

// SubscriptionHandler serves the caller's subscriptions and plan signup.
type SubscriptionHandler struct {
	db *gorm.DB
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(db *gorm.DB) *SubscriptionHandler {
	return &SubscriptionHandler{db: db}
}

// List returns the caller's subscriptions newest-first with plan info.
func (h *SubscriptionHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var rows []models.Subscription
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list subscriptions failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		entry := gin.H{
			"id":         rows[i].ID,
			"status":     rows[i].Status,
			"price_paid": rows[i].PricePaid,
			"start_date": rows[i].StartDate.Format("2006-01-02"),
			"created_at": rows[i].CreatedAt,
			"plan": gin.H{
				"id":               rows[i].Plan.ID,
				"name":             rows[i].Plan.Name,
				"monthly_price":    rows[i].Plan.MonthlyPrice,
				"monthly_quota_gb": rows[i].Plan.MonthlyQuotaGB,
			},
		}
		if rows[i].EndDate != nil {
			entry["end_date"] = rows[i].EndDate.Format("2006-01-02")
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": out})
}

// subscribeRequest defines the plan signup body.
type subscribeRequest struct {
	PlanID       uint64 `json:"plan_id"`       // Plan to subscribe to.
	DiscountCode string `json:"discount_code"` // Optional discount code.
}

// Subscribe creates an active subscription at the plan's current price. A
// discount code, when supplied, must be redeemable right now; its used_count
// increments in the same transaction as the subscription insert so the
// redemption cap cannot be oversubscribed by concurrent failures.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body subscribeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.PlanID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan_id is required"})
		return
	}

	ctx := c.Request.Context()
	var plan models.Plan
	errFind := h.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", body.PlanID, true).
		First(&plan).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	price := plan.MonthlyPrice
	var discount *models.Discount
	if code := strings.TrimSpace(body.DiscountCode); code != "" {
		var d models.Discount
		errCode := h.db.WithContext(ctx).Where("code = ?", code).First(&d).Error
		if errCode != nil {
			if errors.Is(errCode, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discount code"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if errRedeem := redeemableNow(&d, plan.ID, price); errRedeem != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errRedeem.Error()})
			return
		}
		price = discountedPrice(&d, price)
		discount = &d
	}

	sub := models.Subscription{
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionActive,
		StartDate: time.Now().UTC(),
		PricePaid: price,
	}
	errTx := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&sub).Error; errCreate != nil {
			return errCreate
		}
		if discount != nil {
			result := tx.Model(&models.Discount{}).
				Where("id = ? AND used_count = ?", discount.ID, discount.UsedCount).
				Update("used_count", discount.UsedCount+1)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return errors.New("discount code contention")
			}
		}
		return nil
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create subscription failed"})
		return
	}

	out := gin.H{
		"id":         sub.ID,
		"plan_id":    sub.PlanID,
		"status":     sub.Status,
		"price_paid": sub.PricePaid,
		"start_date": sub.StartDate.Format("2006-01-02"),
	}
	if discount != nil {
		out["discount_code"] = discount.Code
	}
	c.JSON(http.StatusCreated, out)
}

// Recommendations returns active plans whose quota covers the caller's
// average monthly usage, cheapest first.
func (h *SubscriptionHandler) Recommendations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	avgMonthly, errAvg := averageMonthlyUsage(h.db.WithContext(ctx), userID)
	if errAvg != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregate usage failed"})
		return
	}

	var plans []models.Plan
	if errFind := h.db.WithContext(ctx).
		Where("is_active = ? AND monthly_quota_gb >= ?", true, avgMonthly).
		Order("monthly_price ASC").
		Find(&plans).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}

	out := make([]gin.H, 0, len(plans))
	for i := range plans {
		out = append(out, gin.H{
			"id":               plans[i].ID,
			"name":             plans[i].Name,
			"description":      plans[i].Description,
			"monthly_price":    plans[i].MonthlyPrice,
			"monthly_quota_gb": plans[i].MonthlyQuotaGB,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"average_monthly_usage_gb": avgMonthly,
		"recommendations":          out,
	})
}

// averageMonthlyUsage computes the caller's mean usage per distinct month
// with recorded rows. No rows means zero.
func averageMonthlyUsage(conn *gorm.DB, userID uint64) (float64, error) {
	var rows []models.Usage
	if errFind := conn.
		Where("user_id = ?", userID).
		Find(&rows).Error; errFind != nil {
		return 0, errFind
	}
	if len(rows) == 0 {
		return 0, nil
	}
	byMonth := map[string]float64{}
	for _, row := range rows {
		byMonth[row.UsageDate.UTC().Format("2006-01")] += row.DataUsedGB
	}
	var total float64
	for _, sum := range byMonth {
		total += sum
	}
	return total / float64(len(byMonth)), nil
}

// redeemableNow checks a discount against the current time, its plan binding,
// redemption cap, and minimum amount.
func redeemableNow(d *models.Discount, planID uint64, price float64) error {
	if !d.IsActive {
		return errors.New("discount code is inactive")
	}
	if d.PlanID != nil && *d.PlanID != planID {
		return errors.New("discount code does not apply to this plan")
	}
	now := time.Now().UTC()
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return errors.New("discount code is not yet valid")
	}
	if d.ValidUntil != nil && now.After(*d.ValidUntil) {
		return errors.New("discount code has expired")
	}
	if d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit {
		return errors.New("discount code usage limit reached")
	}
	if d.MinAmount != nil && price < *d.MinAmount {
		return errors.New("plan price below discount minimum")
	}
	return nil
}

// discountedPrice applies the discount terms to a price. The result never
// drops below zero, and percentage reductions honor max_discount.
func discountedPrice(d *models.Discount, price float64) float64 {
	var reduction float64
	if d.DiscountType == models.DiscountPercentage {
		reduction = price * d.DiscountValue / 100
	} else {
		reduction = d.DiscountValue
	}
	if d.MaxDiscount != nil && reduction > *d.MaxDiscount {
		reduction = *d.MaxDiscount
	}
	result := price - reduction
	if result < 0 {
		return 0
	}
	return result
}
