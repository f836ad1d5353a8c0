package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/config"
	"github.com/telecomsuite/subtrack/internal/db"
	"github.com/telecomsuite/subtrack/internal/models"
	"github.com/telecomsuite/subtrack/internal/security"
)

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB, config.JWTConfig) {
	t.Helper()
	conn, errOpen := db.Open(filepath.Join(t.TempDir(), "admin.db"))
	if errOpen != nil {
		t.Fatalf("open database: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate database: %v", errMigrate)
	}
	if errSeed := db.Seed(conn); errSeed != nil {
		t.Fatalf("seed database: %v", errSeed)
	}

	jwtCfg := config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterAdminRoutes(r, conn, jwtCfg)
	return r, conn, jwtCfg
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		t.Fatalf("marshal body: %v", errMarshal)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getWithToken(t *testing.T, r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := getWithToken(t, r, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAdminLoginIssuesTokenAndAudits(t *testing.T) {
	r, conn, _ := newTestServer(t)

	w := postJSON(t, r, "/admin/login", gin.H{
		"email":    "admin@example.com",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", w.Code)
	}

	w = postJSON(t, r, "/admin/login", gin.H{
		"email":    "admin@example.com",
		"password": "admin123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if out.Token == "" {
		t.Fatalf("expected session token")
	}

	var count int64
	if errCount := conn.Model(&models.AuditLog{}).
		Where("action = ?", "admin_login").
		Count(&count).Error; errCount != nil {
		t.Fatalf("count audit rows: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected one admin_login audit row, found %d", count)
	}

	w = getWithToken(t, r, "/admin/dashboard", out.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestUserLoginRejectedOnAdminRoutes(t *testing.T) {
	r, conn, jwtCfg := newTestServer(t)

	var demo models.User
	if errFind := conn.Where("email = ?", "user@example.com").First(&demo).Error; errFind != nil {
		t.Fatalf("find demo user: %v", errFind)
	}
	token, errToken := security.IssueSessionToken(jwtCfg.Secret, demo.ID, demo.Role, jwtCfg.Expiry)
	if errToken != nil {
		t.Fatalf("issue token: %v", errToken)
	}

	w := getWithToken(t, r, "/admin/dashboard", token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("user-role token status = %d, want 401", w.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := getWithToken(t, r, "/admin/users", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	w = getWithToken(t, r, "/admin/users", "not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", w.Code)
	}
}
