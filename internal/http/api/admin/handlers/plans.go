package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
	"github.com/telecomsuite/subtrack/internal/mutation"
)

// PlanHandler manages the admin plan catalogue endpoints.
type PlanHandler struct {
	db       *gorm.DB
	recorder *mutation.Recorder
}

// NewPlanHandler constructs a PlanHandler.
func NewPlanHandler(db *gorm.DB) *PlanHandler {
	return &PlanHandler{db: db, recorder: mutation.NewRecorder(db)}
}

// planListQuery defines filters for the plan list view.
type planListQuery struct {
	Page       int   `form:"page,default=1"`   // Page number.
	Limit      int   `form:"limit,default=20"` // Page size.
	ActiveOnly *bool `form:"active"`           // Optional is_active filter.
}

// List returns plans with paging.
func (h *PlanHandler) List(c *gin.Context) {
	var q planListQuery
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

	base := h.db.WithContext(c.Request.Context()).Model(&models.Plan{})
	if q.ActiveOnly != nil {
		base = base.Where("is_active = ?", *q.ActiveOnly)
	}

	var total int64
	if errCount := base.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count plans failed"})
		return
	}

	var rows []models.Plan
	if errFind := base.
		Order("monthly_price ASC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatPlan(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"plans": out,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

// createPlanRequest defines the request body for plan creation.
type createPlanRequest struct {
	Name           string  `json:"name"`             // Plan name.
	Description    string  `json:"description"`      // Marketing description.
	MonthlyPrice   float64 `json:"monthly_price"`    // Monthly price.
	MonthlyQuotaGB int     `json:"monthly_quota_gb"` // Data quota in GB.
	IsActive       *bool   `json:"is_active"`        // Defaults to true.
}

// Create validates input, persists the plan, and derives a plan_created alert
// carrying the price and quota.
func (h *PlanHandler) Create(c *gin.Context) {
	var body createPlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if body.MonthlyPrice < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "monthly_price cannot be negative"})
		return
	}
	if body.MonthlyQuotaGB < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "monthly_quota_gb cannot be negative"})
		return
	}

	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}
	plan := models.Plan{
		Name:           name,
		Description:    strings.TrimSpace(body.Description),
		MonthlyPrice:   body.MonthlyPrice,
		MonthlyQuotaGB: body.MonthlyQuotaGB,
		IsActive:       active,
	}

	errCreate := h.recorder.Create(c.Request.Context(), &plan, func() *models.Alert {
		message := fmt.Sprintf("Plan %q created: %s/month, %d GB quota",
			plan.Name, mutation.FormatPrice(plan.MonthlyPrice), plan.MonthlyQuotaGB)
		return mutation.NewAlert(mutation.KindPlan, mutation.ActionCreated, nil, message)
	})
	if errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create plan failed"})
		return
	}
	c.JSON(http.StatusCreated, formatPlan(&plan))
}

// updatePlanRequest defines optional fields for plan updates. Nil pointers
// leave the stored value unchanged.
type updatePlanRequest struct {
	ID             uint64   `json:"id"`               // Target plan ID.
	Name           *string  `json:"name"`             // Optional name update.
	Description    *string  `json:"description"`      // Optional description update.
	MonthlyPrice   *float64 `json:"monthly_price"`    // Optional price update.
	MonthlyQuotaGB *int     `json:"monthly_quota_gb"` // Optional quota update.
	IsActive       *bool    `json:"is_active"`        // Optional active flag update.
}

// Update applies a partial update and derives a plan_updated alert from the
// field diff. No-op updates stay silent.
func (h *PlanHandler) Update(c *gin.Context) {
	var body updatePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	ctx := c.Request.Context()
	var existing models.Plan
	if errFind := h.db.WithContext(ctx).First(&existing, body.ID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{}
	var diff mutation.ChangeSet

	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		diff.Set("name", existing.Name, name)
		updates["name"] = name
	}
	if body.Description != nil {
		desc := strings.TrimSpace(*body.Description)
		diff.Set("description", existing.Description, desc)
		updates["description"] = desc
	}
	if body.MonthlyPrice != nil {
		if *body.MonthlyPrice < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "monthly_price cannot be negative"})
			return
		}
		diff.Set("monthly_price", existing.MonthlyPrice, *body.MonthlyPrice)
		updates["monthly_price"] = *body.MonthlyPrice
	}
	if body.MonthlyQuotaGB != nil {
		if *body.MonthlyQuotaGB < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "monthly_quota_gb cannot be negative"})
			return
		}
		diff.Set("monthly_quota_gb", existing.MonthlyQuotaGB, *body.MonthlyQuotaGB)
		updates["monthly_quota_gb"] = *body.MonthlyQuotaGB
	}
	if body.IsActive != nil {
		diff.Set("is_active", existing.IsActive, *body.IsActive)
		updates["is_active"] = *body.IsActive
	}

	if diff.Empty() {
		c.JSON(http.StatusOK, formatPlan(&existing))
		return
	}

	alert := mutation.NewAlert(mutation.KindPlan, mutation.ActionUpdated, nil, diff.Message())
	if errUpdate := h.recorder.Update(ctx, &models.Plan{}, existing.ID, updates, alert); errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update plan failed"})
		return
	}

	var updated models.Plan
	if errReload := h.db.WithContext(ctx).First(&updated, existing.ID).Error; errReload != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatPlan(&updated))
}

// Delete removes a plan and cascades to its subscriptions and the discounts
// bound to it. The alert captures the pre-deletion name and price.
func (h *PlanHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Query("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	var existing models.Plan
	if errFind := h.db.WithContext(ctx).First(&existing, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	message := fmt.Sprintf("Plan %q (%s/month) deleted",
		existing.Name, mutation.FormatPrice(existing.MonthlyPrice))
	alert := mutation.NewAlert(mutation.KindPlan, mutation.ActionDeleted, nil, message)

	errDelete := h.recorder.Delete(ctx, &models.Plan{}, id, alert,
		func(tx *gorm.DB) error {
			return tx.Where("plan_id = ?", id).Delete(&models.Subscription{}).Error
		},
		func(tx *gorm.DB) error {
			return tx.Where("plan_id = ?", id).Delete(&models.Discount{}).Error
		},
	)
	if errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete plan failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

// formatPlan converts a plan model into a response payload.
func formatPlan(p *models.Plan) gin.H {
	return gin.H{
		"id":               p.ID,
		"name":             p.Name,
		"description":      p.Description,
		"monthly_price":    p.MonthlyPrice,
		"monthly_quota_gb": p.MonthlyQuotaGB,
		"is_active":        p.IsActive,
		"created_at":       p.CreatedAt,
		"updated_at":       p.UpdatedAt,
	}
}
