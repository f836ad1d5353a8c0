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

// AuthHandler manages admin console authentication.
type AuthHandler struct {
	db       *gorm.DB
	jwtCfg   config.JWTConfig
	recorder *mutation.Recorder
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, recorder: mutation.NewRecorder(db)}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Email    string `json:"email"`     // Account email.
	Password string `json:"password"`  // Plaintext password.
	TOTPCode string `json:"totp_code"` // Required when the admin has MFA enrolled.
}

// Login verifies admin credentials, enforces TOTP when enrolled, writes an
// audit trail row, and issues a session token.
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

	var admin models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("email = ? AND role = ?", email, models.RoleAdmin).
		First(&admin).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !security.CheckPassword(admin.PasswordHash, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if admin.TOTPSecret != "" {
		if !security.ValidateTOTP(admin.TOTPSecret, strings.TrimSpace(body.TOTPCode)) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp code"})
			return
		}
	}

	token, errToken := security.IssueSessionToken(h.jwtCfg.Secret, admin.ID, admin.Role, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}

	entry := &models.AuditLog{
		UserID:    admin.ID,
		Action:    "admin_login",
		TableName: "users",
		RecordID:  &admin.ID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if errAudit := h.recorder.Audit(c.Request.Context(), entry); errAudit != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  formatUser(&admin),
	})
}
