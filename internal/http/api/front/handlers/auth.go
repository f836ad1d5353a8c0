package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/config"
	"github.com/telecomsuite/subtrack/internal/models"
	"github.com/telecomsuite/subtrack/internal/mutation"
	"github.com/telecomsuite/subtrack/internal/security"
)

// AuthHandler serves self-service signup and login.
type AuthHandler struct {
	db       *gorm.DB
	jwtCfg   config.JWTConfig
	recorder *mutation.Recorder
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, recorder: mutation.NewRecorder(db)}
}

// signupRequest defines the self-service signup body.
type signupRequest struct {
	Name     string `json:"name"`     // Display name.
	Email    string `json:"email"`    // Unique email address.
	Password string `json:"password"` // Plaintext password.
}

// Signup creates a user account with the user role. The account row and its
// signup audit entry commit together.
func (h *AuthHandler) Signup(c *gin.Context) {
	var body signupRequest
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

	ctx := c.Request.Context()
	var count int64
	if errCount := h.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if count > 0 {
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
		Role:         models.RoleUser,
	}
	ip := c.ClientIP()
	agent := c.Request.UserAgent()
	errCreate := h.recorder.CreateAudited(ctx, &user, func() *models.AuditLog {
		return &models.AuditLog{
			UserID:    user.ID,
			Action:    "user_signup",
			TableName: "users",
			RecordID:  &user.ID,
			IPAddress: ip,
			UserAgent: agent,
		}
	})
	if errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}

	token, errToken := security.IssueSessionToken(h.jwtCfg.Secret, user.ID, user.Role, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// loginRequest defines the user login body.
type loginRequest struct {
	Email    string `json:"email"`    // Account email.
	Password string `json:"password"` // Plaintext password.
}

// Login authenticates a user-role account and issues a session token. Bad
// credentials and unknown emails both report 401 without distinguishing.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	ctx := c.Request.Context()
	var account models.User
	errFind := h.db.WithContext(ctx).
		Where("email = ? AND role = ?", email, models.RoleUser).
		First(&account).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !security.CheckPassword(account.PasswordHash, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, errToken := security.IssueSessionToken(h.jwtCfg.Secret, account.ID, account.Role, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}

	if errAudit := h.recorder.Audit(ctx, &models.AuditLog{
		UserID:    account.ID,
		Action:    "user_login",
		TableName: "users",
		RecordID:  &account.ID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}); errAudit != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":    account.ID,
			"name":  account.Name,
			"email": account.Email,
			"role":  account.Role,
		},
	})
}
