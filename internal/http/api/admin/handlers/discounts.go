package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
	"github.com/telecomsuite/subtrack/internal/mutation"
)

// DiscountHandler manages the admin discount code endpoints.
type DiscountHandler struct {
	db       *gorm.DB
	recorder *mutation.Recorder
}

// NewDiscountHandler constructs a DiscountHandler.
func NewDiscountHandler(db *gorm.DB) *DiscountHandler {
	return &DiscountHandler{db: db, recorder: mutation.NewRecorder(db)}
}

// discountListQuery defines filters for the discount list view.
type discountListQuery struct {
	Page       int   `form:"page,default=1"`   // Page number.
	Limit      int   `form:"limit,default=20"` // Page size.
	ActiveOnly *bool `form:"active"`           // Optional is_active filter.
}

// List returns discounts with paging.
func (h *DiscountHandler) List(c *gin.Context) {
	var q discountListQuery
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

	base := h.db.WithContext(c.Request.Context()).Model(&models.Discount{})
	if q.ActiveOnly != nil {
		base = base.Where("is_active = ?", *q.ActiveOnly)
	}

	var total int64
	if errCount := base.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count discounts failed"})
		return
	}

	var rows []models.Discount
	if errFind := base.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list discounts failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatDiscount(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"discounts": out,
		"total":     total,
		"page":      q.Page,
		"limit":     q.Limit,
	})
}

// createDiscountRequest defines the request body for discount creation.
type createDiscountRequest struct {
	PlanID        *uint64    `json:"plan_id"`        // Optional plan binding; nil applies to all plans.
	Code          string     `json:"code"`           // Unique redeem code.
	Description   string     `json:"description"`    // Human-readable description.
	DiscountType  string     `json:"discount_type"`  // "percentage" or "fixed"; defaults to percentage.
	DiscountValue float64    `json:"discount_value"` // Percent or fixed amount.
	MinAmount     *float64   `json:"min_amount"`     // Optional minimum purchase amount.
	MaxDiscount   *float64   `json:"max_discount"`   // Optional cap on the discounted amount.
	UsageLimit    *int       `json:"usage_limit"`    // Optional redemption cap.
	IsActive      *bool      `json:"is_active"`      // Defaults to true.
	ValidFrom     *time.Time `json:"valid_from"`     // Optional validity window start.
	ValidUntil    *time.Time `json:"valid_until"`    // Optional validity window end.
}

// Create validates input, persists the discount, and derives a
// discount_created alert.
func (h *DiscountHandler) Create(c *gin.Context) {
	var body createDiscountRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	dtype := models.DiscountType(strings.TrimSpace(body.DiscountType))
	if dtype == "" {
		dtype = models.DiscountPercentage
	}
	if !dtype.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discount_type"})
		return
	}
	if errValue := validateDiscountValue(dtype, body.DiscountValue); errValue != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValue.Error()})
		return
	}
	if body.ValidFrom != nil && body.ValidUntil != nil && body.ValidUntil.Before(*body.ValidFrom) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid_until precedes valid_from"})
		return
	}
	if body.UsageLimit != nil && *body.UsageLimit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "usage_limit must be positive"})
		return
	}

	ctx := c.Request.Context()
	if body.PlanID != nil {
		var plan models.Plan
		if errFind := h.db.WithContext(ctx).First(&plan, *body.PlanID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
	}

	var count int64
	if errCount := h.db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("code = ?", code).
		Count(&count).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code already exists"})
		return
	}

	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}
	discount := models.Discount{
		PlanID:        body.PlanID,
		Code:          code,
		Description:   strings.TrimSpace(body.Description),
		DiscountType:  dtype,
		DiscountValue: body.DiscountValue,
		MinAmount:     body.MinAmount,
		MaxDiscount:   body.MaxDiscount,
		UsageLimit:    body.UsageLimit,
		IsActive:      active,
		ValidFrom:     body.ValidFrom,
		ValidUntil:    body.ValidUntil,
	}

	errCreate := h.recorder.Create(ctx, &discount, func() *models.Alert {
		message := fmt.Sprintf("Discount %q created: %s", discount.Code, describeDiscount(&discount))
		return mutation.NewAlert(mutation.KindDiscount, mutation.ActionCreated, nil, message)
	})
	if errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create discount failed"})
		return
	}
	c.JSON(http.StatusCreated, formatDiscount(&discount))
}

// updateDiscountRequest defines optional fields for discount updates. Nil
// pointers leave the stored value unchanged.
type updateDiscountRequest struct {
	ID            uint64     `json:"id"`             // Target discount ID.
	Description   *string    `json:"description"`    // Optional description update.
	DiscountType  *string    `json:"discount_type"`  // Optional type update.
	DiscountValue *float64   `json:"discount_value"` // Optional value update.
	UsageLimit    *int       `json:"usage_limit"`    // Optional redemption cap update.
	IsActive      *bool      `json:"is_active"`      // Optional active flag update.
	ValidFrom     *time.Time `json:"valid_from"`     // Optional window start update.
	ValidUntil    *time.Time `json:"valid_until"`    // Optional window end update.
}

// Update applies a partial update and derives a discount_updated alert from
// the field diff. No-op updates stay silent.
func (h *DiscountHandler) Update(c *gin.Context) {
	var body updateDiscountRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	ctx := c.Request.Context()
	var existing models.Discount
	if errFind := h.db.WithContext(ctx).First(&existing, body.ID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "discount not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{}
	var diff mutation.ChangeSet

	dtype := existing.DiscountType
	if body.DiscountType != nil {
		dtype = models.DiscountType(strings.TrimSpace(*body.DiscountType))
		if !dtype.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discount_type"})
			return
		}
		diff.Set("discount_type", existing.DiscountType, dtype)
		updates["discount_type"] = dtype
	}
	if body.DiscountValue != nil {
		if errValue := validateDiscountValue(dtype, *body.DiscountValue); errValue != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errValue.Error()})
			return
		}
		diff.Set("discount_value", existing.DiscountValue, *body.DiscountValue)
		updates["discount_value"] = *body.DiscountValue
	} else if body.DiscountType != nil {
		if errValue := validateDiscountValue(dtype, existing.DiscountValue); errValue != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errValue.Error()})
			return
		}
	}
	if body.Description != nil {
		desc := strings.TrimSpace(*body.Description)
		diff.Set("description", existing.Description, desc)
		updates["description"] = desc
	}
	if body.UsageLimit != nil {
		if *body.UsageLimit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "usage_limit must be positive"})
			return
		}
		diff.Set("usage_limit", existing.UsageLimit, body.UsageLimit)
		updates["usage_limit"] = *body.UsageLimit
	}
	if body.IsActive != nil {
		diff.Set("is_active", existing.IsActive, *body.IsActive)
		updates["is_active"] = *body.IsActive
	}
	if body.ValidFrom != nil {
		diff.Set("valid_from", renderTime(existing.ValidFrom), renderTime(body.ValidFrom))
		updates["valid_from"] = *body.ValidFrom
	}
	if body.ValidUntil != nil {
		diff.Set("valid_until", renderTime(existing.ValidUntil), renderTime(body.ValidUntil))
		updates["valid_until"] = *body.ValidUntil
	}

	if diff.Empty() {
		c.JSON(http.StatusOK, formatDiscount(&existing))
		return
	}

	alert := mutation.NewAlert(mutation.KindDiscount, mutation.ActionUpdated, nil, diff.Message())
	if errUpdate := h.recorder.Update(ctx, &models.Discount{}, existing.ID, updates, alert); errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update discount failed"})
		return
	}

	var updated models.Discount
	if errReload := h.db.WithContext(ctx).First(&updated, existing.ID).Error; errReload != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatDiscount(&updated))
}

// Delete removes a discount. The alert captures the pre-deletion code and
// terms.
func (h *DiscountHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Query("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	var existing models.Discount
	if errFind := h.db.WithContext(ctx).First(&existing, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "discount not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	message := fmt.Sprintf("Discount %q (%s) deleted", existing.Code, describeDiscount(&existing))
	alert := mutation.NewAlert(mutation.KindDiscount, mutation.ActionDeleted, nil, message)

	if errDelete := h.recorder.Delete(ctx, &models.Discount{}, id, alert); errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete discount failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

// validateDiscountValue checks the value against its type's bounds.
// Percentages stay within (0, 100]; fixed amounts must be positive.
func validateDiscountValue(t models.DiscountType, v float64) error {
	if v <= 0 {
		return errors.New("discount_value must be positive")
	}
	if t == models.DiscountPercentage && v > 100 {
		return errors.New("percentage discount cannot exceed 100")
	}
	return nil
}

// describeDiscount renders the discount terms for alert messages.
func describeDiscount(d *models.Discount) string {
	if d.DiscountType == models.DiscountPercentage {
		return fmt.Sprintf("%s%% off", mutation.FormatPrice(d.DiscountValue))
	}
	return fmt.Sprintf("%s off", mutation.FormatPrice(d.DiscountValue))
}

// renderTime formats an optional timestamp for diff messages.
func renderTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02")
}

// formatDiscount converts a discount model into a response payload.
func formatDiscount(d *models.Discount) gin.H {
	return gin.H{
		"id":             d.ID,
		"plan_id":        d.PlanID,
		"code":           d.Code,
		"description":    d.Description,
		"discount_type":  d.DiscountType,
		"discount_value": d.DiscountValue,
		"min_amount":     d.MinAmount,
		"max_discount":   d.MaxDiscount,
		"usage_limit":    d.UsageLimit,
		"used_count":     d.UsedCount,
		"is_active":      d.IsActive,
		"valid_from":     d.ValidFrom,
		"valid_until":    d.ValidUntil,
		"created_at":     d.CreatedAt,
		"updated_at":     d.UpdatedAt,
	}
}
