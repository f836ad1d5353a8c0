package handlers

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
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open(filepath.Join(t.TempDir(), "front.db"))
	if errOpen != nil {
		t.Fatalf("open database: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate database: %v", errMigrate)
	}
	return conn
}

// newTestRouter registers the front handlers behind a stub that injects the
// given user ID, standing in for the session middleware.
func newTestRouter(conn *gorm.DB, userID uint64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})

	authHandler := NewAuthHandler(conn, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	r.POST("/signup", authHandler.Signup)
	r.POST("/login", authHandler.Login)

	dashboardHandler := NewDashboardHandler(conn)
	r.GET("/dashboard", dashboardHandler.Snapshot)

	subscriptionHandler := NewSubscriptionHandler(conn)
	r.GET("/subscriptions", subscriptionHandler.List)
	r.POST("/subscriptions", subscriptionHandler.Subscribe)
	r.GET("/recommendations", subscriptionHandler.Recommendations)

	usageHandler := NewUsageHandler(conn)
	r.GET("/usage", usageHandler.List)
	r.POST("/usage", usageHandler.Record)

	billingHandler := NewBillingHandler(conn)
	r.GET("/billing", billingHandler.History)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func approx(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.001
}

func seedUser(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	user := models.User{Name: "Front User", Email: "front@example.com", PasswordHash: "x", Role: models.RoleUser}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return &user
}

func seedPlan(t *testing.T, conn *gorm.DB, name string, price float64, quota int) *models.Plan {
	t.Helper()
	plan := models.Plan{Name: name, MonthlyPrice: price, MonthlyQuotaGB: quota, IsActive: true}
	if errCreate := conn.Create(&plan).Error; errCreate != nil {
		t.Fatalf("create plan: %v", errCreate)
	}
	return &plan
}

func TestSignupWritesAuditRowAtomically(t *testing.T) {
	conn := openTestDB(t)
	r := newTestRouter(conn, 0)

	w := doJSON(t, r, http.MethodPost, "/signup", gin.H{
		"name":     "New User",
		"email":    "new@example.com",
		"password": "secret",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", w.Code, w.Body.String())
	}

	var trail models.AuditLog
	if errFind := conn.Where("action = ?", "user_signup").First(&trail).Error; errFind != nil {
		t.Fatalf("find audit row: %v", errFind)
	}
	var user models.User
	if errFind := conn.Where("email = ?", "new@example.com").First(&user).Error; errFind != nil {
		t.Fatalf("find user: %v", errFind)
	}
	if trail.UserID != user.ID {
		t.Fatalf("audit row user_id = %d, want %d", trail.UserID, user.ID)
	}
	if user.Role != models.RoleUser {
		t.Fatalf("signup role = %q, want user", user.Role)
	}
}

func TestSignupDuplicateEmailRejected(t *testing.T) {
	conn := openTestDB(t)
	r := newTestRouter(conn, 0)

	doJSON(t, r, http.MethodPost, "/signup", gin.H{
		"name": "First", "email": "dup@example.com", "password": "secret",
	})
	w := doJSON(t, r, http.MethodPost, "/signup", gin.H{
		"name": "Second", "email": "dup@example.com", "password": "secret",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup status = %d", w.Code)
	}
}

func TestLoginAuditsAndRejectsBadPassword(t *testing.T) {
	conn := openTestDB(t)
	r := newTestRouter(conn, 0)

	doJSON(t, r, http.MethodPost, "/signup", gin.H{
		"name": "Login User", "email": "login@example.com", "password": "secret",
	})

	w := doJSON(t, r, http.MethodPost, "/login", gin.H{
		"email": "login@example.com", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/login", gin.H{
		"email": "login@example.com", "password": "secret",
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
	if errCount := conn.Model(&models.AuditLog{}).Where("action = ?", "user_login").Count(&count).Error; errCount != nil {
		t.Fatalf("count audit rows: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected one user_login audit row, found %d", count)
	}
}

func TestSubscribeSnapshotsPlanPrice(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn)
	plan := seedPlan(t, conn, "Basic Plan", 29.99, 10)
	r := newTestRouter(conn, user.ID)

	w := doJSON(t, r, http.MethodPost, "/subscriptions", gin.H{"plan_id": plan.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("subscribe status = %d, body %s", w.Code, w.Body.String())
	}

	var sub models.Subscription
	if errFind := conn.Where("user_id = ?", user.ID).First(&sub).Error; errFind != nil {
		t.Fatalf("find subscription: %v", errFind)
	}
	if sub.PricePaid != 29.99 {
		t.Fatalf("price_paid = %v, want 29.99", sub.PricePaid)
	}
	if sub.Status != models.SubscriptionActive {
		t.Fatalf("status = %q, want active", sub.Status)
	}

	// Raising the plan price later must not touch the snapshot.
	if errUpdate := conn.Model(&models.Plan{}).Where("id = ?", plan.ID).
		Update("monthly_price", 49.99).Error; errUpdate != nil {
		t.Fatalf("update plan: %v", errUpdate)
	}
	if errReload := conn.First(&sub, sub.ID).Error; errReload != nil {
		t.Fatalf("reload subscription: %v", errReload)
	}
	if sub.PricePaid != 29.99 {
		t.Fatalf("snapshot changed with plan price: %v", sub.PricePaid)
	}
}

func TestSubscribeMissingPlanLeavesNoRow(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn)
	r := newTestRouter(conn, user.ID)

	w := doJSON(t, r, http.MethodPost, "/subscriptions", gin.H{"plan_id": 404})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var count int64
	if errCount := conn.Model(&models.Subscription{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count subscriptions: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no subscription rows, found %d", count)
	}
}

func TestSubscribeInactivePlanReturns404(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn)
	plan := models.Plan{Name: "Retired Plan", MonthlyPrice: 9.99, MonthlyQuotaGB: 5, IsActive: false}
	if errCreate := conn.Create(&plan).Error; errCreate != nil {
		t.Fatalf("create plan: %v", errCreate)
	}
	r := newTestRouter(conn, user.ID)

	w := doJSON(t, r, http.MethodPost, "/subscriptions", gin.H{"plan_id": plan.ID})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestSubscribeWithDiscountIncrementsUsedCount(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn)
	plan := seedPlan(t, conn, "Basic Plan", 29.99, 10)
	limit := 1
	discount := models.Discount{
		Code:          "HALF",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: 50,
		UsageLimit:    &limit,
		IsActive:      true,
	}
	if errCreate := conn.Create(&discount).Error; errCreate != nil {
		t.Fatalf("create discount: %v", errCreate)
	}
	r := newTestRouter(conn, user.ID)

	w := doJSON(t, r, http.MethodPost, "/subscriptions", gin.H{
		"plan_id":       plan.ID,
		"discount_code": "HALF",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("subscribe status = %d, body %s", w.Code, w.Body.String())
	}

	var sub models.Subscription
	if errFind := conn.Where("user_id = ?", user.ID).First(&sub).Error; errFind != nil {
		t.Fatalf("find subscription: %v", errFind)
	}
	if sub.PricePaid < 14.99 || sub.PricePaid > 15.0 {
		t.Fatalf("discounted price = %v, want about 15.00", sub.PricePaid)
	}

	var stored models.Discount
	if errFind := conn.First(&stored, discount.ID).Error; errFind != nil {
		t.Fatalf("find discount: %v", errFind)
	}
	if stored.UsedCount != 1 {
		t.Fatalf("used_count = %d, want 1", stored.UsedCount)
	}

	// Cap reached, a second redemption must fail without a new row.
	w = doJSON(t, r, http.MethodPost, "/subscriptions", gin.H{
		"plan_id":       plan.ID,
		"discount_code": "HALF",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("over-limit status = %d, body %s", w.Code, w.Body.String())
	}
	var count int64
	if errCount := conn.Model(&models.Subscription{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count subscriptions: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected one subscription row, found %d", count)
	}
}

func TestSubscribeExpiredDiscountRejected(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn)
	plan := seedPlan(t, conn, "Basic Plan", 29.99, 10)
	past := time.Now().UTC().AddDate(0, 0, -1)
	discount := models.Discount{
		Code:          "LATE",
		DiscountType:  models.DiscountFixed,
		DiscountValue: 5,
		IsActive:      true,
		ValidUntil:    &past,
	}
	if errCreate := conn.Create(&discount).Error; errCreate != nil {
		t.Fatalf("create discount: %v", errCreate)
	}
	r := newTestRouter(conn, user.ID)

	w := doJSON(t, r, http.MethodPost, "/subscriptions", gin.H{
		"plan_id":       plan.ID,
		"discount_code": "LATE",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expired discount status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestRecordAndListUsage(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn)
	r := newTestRouter(conn, user.ID)

	w := doJSON(t, r, http.MethodPost, "/usage", gin.H{
		"usage_date":   "2026-08-15",
		"data_used_gb": 2.5,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("record status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/usage", gin.H{
		"usage_date":   "2026-07-01",
		"data_used_gb": 1.0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("record status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/usage?from=2026-08-01&to=2026-08-31", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var out struct {
		Usage   []json.RawMessage `json:"usage"`
		TotalGB float64           `json:"total_gb"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(out.Usage) != 1 {
		t.Fatalf("windowed list returned %d rows, want 1", len(out.Usage))
	}
	if out.TotalGB != 2.5 {
		t.Fatalf("total_gb = %v, want 2.5", out.TotalGB)
	}
}

func TestRecordNegativeUsageRejected(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn)
	r := newTestRouter(conn, user.ID)

	w := doJSON(t, r, http.MethodPost, "/usage", gin.H{"data_used_gb": -1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRecommendationsCoverAverageUsageCheapestFirst(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn)
	seedPlan(t, conn, "Small Plan", 9.99, 5)
	seedPlan(t, conn, "Big Plan", 59.99, 100)
	seedPlan(t, conn, "Mid Plan", 29.99, 20)

	// Two months averaging 15 GB: the 5 GB plan must drop out.
	for _, row := range []models.Usage{
		{UserID: user.ID, UsageDate: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), DataUsedGB: 10},
		{UserID: user.ID, UsageDate: time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC), DataUsedGB: 20},
	} {
		if errCreate := conn.Create(&row).Error; errCreate != nil {
			t.Fatalf("create usage: %v", errCreate)
		}
	}

	r := newTestRouter(conn, user.ID)
	w := doJSON(t, r, http.MethodGet, "/recommendations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out struct {
		Recommendations []struct {
			Name         string  `json:"name"`
			MonthlyPrice float64 `json:"monthly_price"`
		} `json:"recommendations"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(out.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(out.Recommendations))
	}
	if out.Recommendations[0].Name != "Mid Plan" || out.Recommendations[1].Name != "Big Plan" {
		t.Fatalf("recommendations not cheapest-first: %+v", out.Recommendations)
	}
}

func TestBillingGroupsByMonth(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn)
	plan := seedPlan(t, conn, "Basic Plan", 29.99, 10)

	for _, created := range []time.Time{
		time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	} {
		sub := models.Subscription{
			UserID:    user.ID,
			PlanID:    plan.ID,
			Status:    models.SubscriptionActive,
			PricePaid: 29.99,
			CreatedAt: created,
		}
		if errCreate := conn.Create(&sub).Error; errCreate != nil {
			t.Fatalf("create subscription: %v", errCreate)
		}
	}

	r := newTestRouter(conn, user.ID)
	w := doJSON(t, r, http.MethodGet, "/billing", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out struct {
		Months []struct {
			Month string  `json:"month"`
			Total float64 `json:"total"`
		} `json:"months"`
		TotalSpend float64 `json:"total_spend"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(out.Months) != 2 {
		t.Fatalf("got %d months, want 2", len(out.Months))
	}
	if out.Months[0].Month != "2026-06" || out.Months[1].Month != "2026-07" {
		t.Fatalf("months not oldest-first: %+v", out.Months)
	}
	if !approx(out.Months[0].Total, 59.98) {
		t.Fatalf("june total = %v, want 59.98", out.Months[0].Total)
	}
	if !approx(out.TotalSpend, 89.97) {
		t.Fatalf("total spend = %v, want 89.97", out.TotalSpend)
	}
}

func TestDashboardSnapshotForUser(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn)
	plan := seedPlan(t, conn, "Basic Plan", 29.99, 10)
	sub := models.Subscription{UserID: user.ID, PlanID: plan.ID, Status: models.SubscriptionActive, PricePaid: 29.99}
	if errCreate := conn.Create(&sub).Error; errCreate != nil {
		t.Fatalf("create subscription: %v", errCreate)
	}
	usage := models.Usage{UserID: user.ID, UsageDate: time.Now().UTC(), DataUsedGB: 4}
	if errCreate := conn.Create(&usage).Error; errCreate != nil {
		t.Fatalf("create usage: %v", errCreate)
	}

	r := newTestRouter(conn, user.ID)
	w := doJSON(t, r, http.MethodGet, "/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		MonthUsageGB float64 `json:"month_usage_gb"`
		Subscription struct {
			Status string `json:"status"`
		} `json:"subscription"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if out.MonthUsageGB != 4 {
		t.Fatalf("month usage = %v, want 4", out.MonthUsageGB)
	}
	if out.Subscription.Status != "active" {
		t.Fatalf("subscription status = %q, want active", out.Subscription.Status)
	}
}
