package models

import "time"

// AlertType classifies a notification record.
type AlertType string

// AlertType constants define the supported notification kinds.
const (
	AlertInfo    AlertType = "info"
	AlertWarning AlertType = "warning"
	AlertError   AlertType = "error"
	AlertSuccess AlertType = "success"

	AlertUserCreated AlertType = "user_created"
	AlertUserUpdated AlertType = "user_updated"
	AlertUserDeleted AlertType = "user_deleted"

	AlertPlanCreated AlertType = "plan_created"
	AlertPlanUpdated AlertType = "plan_updated"
	AlertPlanDeleted AlertType = "plan_deleted"

	AlertDiscountCreated AlertType = "discount_created"
	AlertDiscountUpdated AlertType = "discount_updated"
	AlertDiscountDeleted AlertType = "discount_deleted"

	AlertRenewal        AlertType = "renewal"
	AlertRecommendation AlertType = "recommendation"
	AlertGeneral        AlertType = "general"
)

// Valid reports whether the alert type is one of the supported values.
func (t AlertType) Valid() bool {
	switch t {
	case AlertInfo, AlertWarning, AlertError, AlertSuccess,
		AlertUserCreated, AlertUserUpdated, AlertUserDeleted,
		AlertPlanCreated, AlertPlanUpdated, AlertPlanDeleted,
		AlertDiscountCreated, AlertDiscountUpdated, AlertDiscountDeleted,
		AlertRenewal, AlertRecommendation, AlertGeneral:
		return true
	}
	return false
}

// Alert is a derived notification written alongside admin mutations. No GORM
// association is declared for UserID so system alerts and alerts about
// deleted users never violate a foreign key.
type Alert struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID *uint64 `gorm:"index"` // Target user; nil marks a system-wide alert.

	Type    AlertType `gorm:"type:varchar(30);not null"`  // Notification kind.
	Title   string    `gorm:"type:varchar(100);not null"` // Short human label.
	Message string    `gorm:"type:text;not null"`         // Generated description.

	IsRead bool `gorm:"not null;default:false"` // Read flag.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
