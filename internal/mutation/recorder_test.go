package mutation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/db"
	"github.com/telecomsuite/subtrack/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open(filepath.Join(t.TempDir(), "recorder.db"))
	if errOpen != nil {
		t.Fatalf("open database: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate database: %v", errMigrate)
	}
	return conn
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	if errCount := conn.Model(model).Count(&count).Error; errCount != nil {
		t.Fatalf("count rows: %v", errCount)
	}
	return count
}

func TestCreateCommitsEntityAndAlertTogether(t *testing.T) {
	conn := openTestDB(t)
	recorder := NewRecorder(conn)

	plan := models.Plan{Name: "Basic Plan", MonthlyPrice: 29.99, MonthlyQuotaGB: 10, IsActive: true}
	errCreate := recorder.Create(context.Background(), &plan, func() *models.Alert {
		message := fmt.Sprintf("Plan %q created: %s/month, %d GB quota",
			plan.Name, FormatPrice(plan.MonthlyPrice), plan.MonthlyQuotaGB)
		return NewAlert(KindPlan, ActionCreated, nil, message)
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if plan.ID == 0 {
		t.Fatalf("expected generated plan id")
	}

	var alert models.Alert
	if errFind := conn.Where("type = ?", "plan_created").First(&alert).Error; errFind != nil {
		t.Fatalf("find alert: %v", errFind)
	}
	if !containsAll(alert.Message, "29.99", "10") {
		t.Fatalf("alert message missing plan values: %q", alert.Message)
	}
}

func TestCreateRollsBackEntityWhenAlertFails(t *testing.T) {
	conn := openTestDB(t)
	recorder := NewRecorder(conn)

	plan := models.Plan{Name: "Broken Plan", MonthlyPrice: 9.99, MonthlyQuotaGB: 5, IsActive: true}
	errCreate := recorder.Create(context.Background(), &plan, func() *models.Alert {
		return &models.Alert{Type: "bogus_type", Title: "x", Message: "x"}
	})
	if errCreate == nil {
		t.Fatalf("expected invalid alert type to fail the transaction")
	}
	if got := countRows(t, conn, &models.Plan{}); got != 0 {
		t.Fatalf("expected plan insert rolled back, found %d rows", got)
	}
	if got := countRows(t, conn, &models.Alert{}); got != 0 {
		t.Fatalf("expected no alert rows, found %d", got)
	}
}

func TestUpdateMissingRowReportsNotFound(t *testing.T) {
	conn := openTestDB(t)
	recorder := NewRecorder(conn)

	errUpdate := recorder.Update(context.Background(), &models.Plan{}, 404,
		map[string]any{"name": "Renamed"}, nil)
	if !errors.Is(errUpdate, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", errUpdate)
	}
	if got := countRows(t, conn, &models.Alert{}); got != 0 {
		t.Fatalf("expected no alert rows, found %d", got)
	}
}

func TestDeleteRunsCascadesInOneTransaction(t *testing.T) {
	conn := openTestDB(t)
	recorder := NewRecorder(conn)

	plan := models.Plan{Name: "Basic Plan", MonthlyPrice: 29.99, MonthlyQuotaGB: 10, IsActive: true}
	if errCreate := conn.Create(&plan).Error; errCreate != nil {
		t.Fatalf("create plan: %v", errCreate)
	}
	user := models.User{Name: "Demo", Email: "demo@example.com", PasswordHash: "x", Role: models.RoleUser}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	sub := models.Subscription{UserID: user.ID, PlanID: plan.ID, Status: models.SubscriptionActive, PricePaid: plan.MonthlyPrice}
	if errCreate := conn.Create(&sub).Error; errCreate != nil {
		t.Fatalf("create subscription: %v", errCreate)
	}

	alert := NewAlert(KindPlan, ActionDeleted, nil, fmt.Sprintf("Plan %q deleted", plan.Name))
	errDelete := recorder.Delete(context.Background(), &models.Plan{}, plan.ID, alert,
		func(tx *gorm.DB) error {
			return tx.Where("plan_id = ?", plan.ID).Delete(&models.Subscription{}).Error
		},
	)
	if errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}

	if got := countRows(t, conn, &models.Plan{}); got != 0 {
		t.Fatalf("expected plan removed, found %d rows", got)
	}
	if got := countRows(t, conn, &models.Subscription{}); got != 0 {
		t.Fatalf("expected subscriptions cascaded, found %d rows", got)
	}
	var stored models.Alert
	if errFind := conn.Where("type = ?", "plan_deleted").First(&stored).Error; errFind != nil {
		t.Fatalf("find alert: %v", errFind)
	}
	if !containsAll(stored.Message, "Basic Plan") {
		t.Fatalf("alert missing pre-deletion values: %q", stored.Message)
	}
}

func TestAuditWritesTrailRow(t *testing.T) {
	conn := openTestDB(t)
	recorder := NewRecorder(conn)

	id := uint64(1)
	errAudit := recorder.Audit(context.Background(), &models.AuditLog{
		UserID:    id,
		Action:    "admin_login",
		TableName: "users",
		RecordID:  &id,
		IPAddress: "127.0.0.1",
	})
	if errAudit != nil {
		t.Fatalf("audit: %v", errAudit)
	}
	if got := countRows(t, conn, &models.AuditLog{}); got != 1 {
		t.Fatalf("expected one audit row, found %d", got)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}
