package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
	"github.com/telecomsuite/subtrack/internal/security"
)

// MFAHandler manages TOTP enrollment for admin accounts.
type MFAHandler struct {
	db *gorm.DB
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db}
}

// PrepareTOTP generates a fresh secret and provisioning URL. Nothing is
// persisted until the client confirms with a valid code.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	account, ok := h.currentUser(c)
	if !ok {
		return
	}
	secret, url, errGen := security.GenerateTOTPSecret(account.Email)
	if errGen != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate secret failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret, "url": url})
}

// confirmTOTPRequest carries the prepared secret and a code proving the
// authenticator was enrolled.
type confirmTOTPRequest struct {
	Secret string `json:"secret"` // Secret from PrepareTOTP.
	Code   string `json:"code"`   // Current authenticator code.
}

// ConfirmTOTP validates the code against the prepared secret and persists it.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	account, ok := h.currentUser(c)
	if !ok {
		return
	}

	var body confirmTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	secret := strings.TrimSpace(body.Secret)
	code := strings.TrimSpace(body.Code)
	if secret == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "secret and code are required"})
		return
	}
	if !security.ValidateTOTP(secret, code) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("id = ?", account.ID).
		Update("totp_secret", secret).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save secret failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "mfa_enabled": true})
}

// disableTOTPRequest carries a current code proving possession before
// disabling.
type disableTOTPRequest struct {
	Code string `json:"code"` // Current authenticator code.
}

// DisableTOTP clears the stored secret after verifying a current code.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	account, ok := h.currentUser(c)
	if !ok {
		return
	}
	if account.TOTPSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mfa is not enabled"})
		return
	}

	var body disableTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.ValidateTOTP(account.TOTPSecret, strings.TrimSpace(body.Code)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("id = ?", account.ID).
		Update("totp_secret", "").Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear secret failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "mfa_enabled": false})
}

// currentUser loads the authenticated account from the request context.
func (h *MFAHandler) currentUser(c *gin.Context) (*models.User, bool) {
	raw, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	id, ok := raw.(uint64)
	if !ok || id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	var account models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&account, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	return &account, true
}
