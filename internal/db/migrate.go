package db

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
	"github.com/telecomsuite/subtrack/internal/security"
)

// Migrate creates or updates the schema for all domain tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Subscription{},
		&models.Usage{},
		&models.Discount{},
		&models.Alert{},
		&models.AuditLog{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}

// Seed inserts the demo admin, demo user, and starter plans when they do not
// exist yet. Safe to run on every boot.
func Seed(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	admin, errAdmin := ensureUser(conn, "Admin User", "admin@example.com", "admin123", models.RoleAdmin)
	if errAdmin != nil {
		return errAdmin
	}
	_ = admin

	demoUser, errUser := ensureUser(conn, "Demo User", "user@example.com", "user123", models.RoleUser)
	if errUser != nil {
		return errUser
	}

	basic, errBasic := ensurePlan(conn, models.Plan{
		Name:           "Basic Plan",
		Description:    "Perfect for light users with basic data needs",
		MonthlyPrice:   29.99,
		MonthlyQuotaGB: 10,
		IsActive:       true,
	})
	if errBasic != nil {
		return errBasic
	}

	if _, errPremium := ensurePlan(conn, models.Plan{
		Name:           "Premium Plan",
		Description:    "Ideal for heavy users with unlimited data",
		MonthlyPrice:   59.99,
		MonthlyQuotaGB: 100,
		IsActive:       true,
	}); errPremium != nil {
		return errPremium
	}

	if demoUser != nil && basic != nil {
		if errSub := ensureSubscription(conn, demoUser.ID, basic); errSub != nil {
			return errSub
		}
	}
	return nil
}

// ensureUser creates a user unless the email is already registered.
func ensureUser(conn *gorm.DB, name, email, password string, role models.UserRole) (*models.User, error) {
	var existing models.User
	errFind := conn.Where("email = ?", email).First(&existing).Error
	if errFind == nil {
		return &existing, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("db: seed lookup %s: %w", email, errFind)
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return nil, fmt.Errorf("db: seed hash: %w", errHash)
	}
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		return nil, fmt.Errorf("db: seed user %s: %w", email, errCreate)
	}
	log.Infof("demo %s created: %s", role, email)
	return &user, nil
}

// ensurePlan creates a plan unless one with the same name exists.
func ensurePlan(conn *gorm.DB, plan models.Plan) (*models.Plan, error) {
	var existing models.Plan
	errFind := conn.Where("name = ?", plan.Name).First(&existing).Error
	if errFind == nil {
		return &existing, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("db: seed lookup plan %s: %w", plan.Name, errFind)
	}
	if errCreate := conn.Create(&plan).Error; errCreate != nil {
		return nil, fmt.Errorf("db: seed plan %s: %w", plan.Name, errCreate)
	}
	log.Infof("demo plan created: %s", plan.Name)
	return &plan, nil
}

// ensureSubscription creates an active subscription for the demo user unless
// one already exists.
func ensureSubscription(conn *gorm.DB, userID uint64, plan *models.Plan) error {
	var count int64
	if errCount := conn.Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&count).Error; errCount != nil {
		return fmt.Errorf("db: seed lookup subscription: %w", errCount)
	}
	if count > 0 {
		return nil
	}
	sub := models.Subscription{
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionActive,
		StartDate: time.Now().UTC().Truncate(24 * time.Hour),
		PricePaid: plan.MonthlyPrice,
	}
	if errCreate := conn.Create(&sub).Error; errCreate != nil {
		return fmt.Errorf("db: seed subscription: %w", errCreate)
	}
	log.Info("demo subscription created")
	return nil
}
