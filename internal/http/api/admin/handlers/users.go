package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbutil "github.com/telecomsuite/subtrack/internal/db"
	"github.com/telecomsuite/subtrack/internal/models"
	"github.com/telecomsuite/subtrack/internal/mutation"
	"github.com/telecomsuite/subtrack/internal/security"
)

// UserHandler manages admin user account endpoints.
type UserHandler struct {
	db       *gorm.DB
	recorder *mutation.Recorder
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db, recorder: mutation.NewRecorder(db)}
}

// userListQuery defines filters for the user list views.
type userListQuery struct {
	Page   int    `form:"page,default=1"`   // Page number.
	Limit  int    `form:"limit,default=20"` // Page size.
	Search string `form:"search"`           // Free-text search over name/email.
	Role   string `form:"role"`             // Role filter.
}

// List returns users with paging and filters.
func (h *UserHandler) List(c *gin.Context) {
	q, ok := bindUserListQuery(c)
	if !ok {
		return
	}

	base := h.applyUserFilters(c, q)

	var total int64
	if errCount := base.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count users failed"})
		return
	}

	var rows []models.User
	if errFind := base.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatUser(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"users": out,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

// ListDetailed returns users annotated with their subscriptions and total
// usage, for the admin console user view.
func (h *UserHandler) ListDetailed(c *gin.Context) {
	q, ok := bindUserListQuery(c)
	if !ok {
		return
	}

	base := h.applyUserFilters(c, q)

	var total int64
	if errCount := base.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count users failed"})
		return
	}

	var rows []models.User
	if errFind := base.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}

	ctx := c.Request.Context()
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		row := &rows[i]

		var subs []models.Subscription
		if errSubs := h.db.WithContext(ctx).
			Preload("Plan").
			Where("user_id = ?", row.ID).
			Order("created_at DESC").
			Find(&subs).Error; errSubs != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list subscriptions failed"})
			return
		}
		subsOut := make([]gin.H, 0, len(subs))
		for j := range subs {
			subsOut = append(subsOut, gin.H{
				"id":         subs[j].ID,
				"plan_id":    subs[j].PlanID,
				"plan_name":  subs[j].Plan.Name,
				"status":     subs[j].Status,
				"price_paid": subs[j].PricePaid,
				"start_date": subs[j].StartDate.Format("2006-01-02"),
				"created_at": subs[j].CreatedAt,
			})
		}

		var usageTotal float64
		if errUsage := h.db.WithContext(ctx).
			Model(&models.Usage{}).
			Where("user_id = ?", row.ID).
			Select("COALESCE(SUM(data_used_gb), 0)").
			Scan(&usageTotal).Error; errUsage != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sum usage failed"})
			return
		}

		entry := formatUser(row)
		entry["subscriptions"] = subsOut
		entry["total_usage_gb"] = usageTotal
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"users": out,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

// createUserRequest defines the request body for user creation.
type createUserRequest struct {
	Name     string `json:"name"`     // Display name.
	Email    string `json:"email"`    // Unique email address.
	Password string `json:"password"` // Plaintext password.
	Role     string `json:"role"`     // Account role; defaults to "user".
}

// Create validates input, persists the user, and derives a user_created alert.
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	name := strings.TrimSpace(body.Name)
	email := strings.TrimSpace(body.Email)
	if name == "" || email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email, and password are required"})
		return
	}
	role := models.UserRole(strings.TrimSpace(body.Role))
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	ctx := c.Request.Context()
	if taken, errCheck := h.emailTaken(c, email, 0); errCheck != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	} else if taken {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already exists"})
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	errCreate := h.recorder.Create(ctx, &user, func() *models.Alert {
		message := fmt.Sprintf("User %q (%s) created with role %s", user.Name, user.Email, user.Role)
		return mutation.NewAlert(mutation.KindUser, mutation.ActionCreated, &user.ID, message)
	})
	if errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}
	c.JSON(http.StatusCreated, formatUser(&user))
}

// updateUserRequest defines optional fields for user updates. Nil pointers
// leave the stored value unchanged.
type updateUserRequest struct {
	ID    uint64  `json:"id"`    // Target user ID.
	Name  *string `json:"name"`  // Optional name update.
	Email *string `json:"email"` // Optional email update.
	Role  *string `json:"role"`  // Optional role update.
}

// Update applies a partial update and derives a user_updated alert from the
// field diff. No-op updates stay silent.
func (h *UserHandler) Update(c *gin.Context) {
	var body updateUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	ctx := c.Request.Context()
	var existing models.User
	if errFind := h.db.WithContext(ctx).First(&existing, body.ID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
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
	if body.Email != nil {
		email := strings.TrimSpace(*body.Email)
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email cannot be empty"})
			return
		}
		if email != existing.Email {
			if taken, errCheck := h.emailTaken(c, email, existing.ID); errCheck != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
				return
			} else if taken {
				c.JSON(http.StatusBadRequest, gin.H{"error": "email already exists"})
				return
			}
		}
		diff.Set("email", existing.Email, email)
		updates["email"] = email
	}
	if body.Role != nil {
		role := models.UserRole(strings.TrimSpace(*body.Role))
		if !role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		diff.Set("role", existing.Role, role)
		updates["role"] = role
	}

	if diff.Empty() {
		c.JSON(http.StatusOK, formatUser(&existing))
		return
	}

	alert := mutation.NewAlert(mutation.KindUser, mutation.ActionUpdated, &existing.ID, diff.Message())
	if errUpdate := h.recorder.Update(ctx, &models.User{}, existing.ID, updates, alert); errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update user failed"})
		return
	}

	var updated models.User
	if errReload := h.db.WithContext(ctx).First(&updated, existing.ID).Error; errReload != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatUser(&updated))
}

// Delete removes a user and cascades to its subscriptions and usage rows.
// The derived user_deleted alert is system-wide because the referenced user
// no longer exists.
func (h *UserHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Query("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	var existing models.User
	if errFind := h.db.WithContext(ctx).First(&existing, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	message := fmt.Sprintf("User %q (%s) deleted", existing.Name, existing.Email)
	alert := mutation.NewAlert(mutation.KindUser, mutation.ActionDeleted, nil, message)

	errDelete := h.recorder.Delete(ctx, &models.User{}, id, alert,
		func(tx *gorm.DB) error {
			return tx.Where("user_id = ?", id).Delete(&models.Subscription{}).Error
		},
		func(tx *gorm.DB) error {
			return tx.Where("user_id = ?", id).Delete(&models.Usage{}).Error
		},
	)
	if errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete user failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

// emailTaken reports whether another user already owns the email.
func (h *UserHandler) emailTaken(c *gin.Context, email string, excludeID uint64) (bool, error) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("email = ?", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if errCount := q.Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// applyUserFilters builds the filtered user query for list views.
func (h *UserHandler) applyUserFilters(c *gin.Context, q userListQuery) *gorm.DB {
	base := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+search+"%")
		base = base.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "name")+" OR "+dbutil.CaseInsensitiveLikeExpr(h.db, "email"),
			pattern,
			pattern,
		)
	}
	if role := strings.TrimSpace(q.Role); role != "" {
		base = base.Where("role = ?", role)
	}
	return base
}

// bindUserListQuery binds and clamps the shared list query parameters.
func bindUserListQuery(c *gin.Context) (userListQuery, bool) {
	var q userListQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return q, false
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}
	return q, true
}

// formatUser converts a user model into a response payload. Password hashes
// and TOTP secrets never leave the server.
func formatUser(u *models.User) gin.H {
	return gin.H{
		"id":          u.ID,
		"name":        u.Name,
		"email":       u.Email,
		"role":        u.Role,
		"mfa_enabled": u.TOTPSecret != "",
		"created_at":  u.CreatedAt,
		"updated_at":  u.UpdatedAt,
	}
}
