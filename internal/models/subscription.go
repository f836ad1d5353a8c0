package models

import "time"

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

// SubscriptionStatus constants define subscription lifecycle states.
const (
	// SubscriptionActive marks a currently running subscription.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionExpired marks a subscription past its end date.
	SubscriptionExpired SubscriptionStatus = "expired"
	// SubscriptionCancelled marks a subscription terminated by the user.
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	// SubscriptionPaused marks a temporarily suspended subscription.
	SubscriptionPaused SubscriptionStatus = "paused"
)

// Valid reports whether the status is one of the supported values.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionExpired, SubscriptionCancelled, SubscriptionPaused:
		return true
	}
	return false
}

// Subscription links a user to a plan for a billing period.
type Subscription struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Subscribing user ID.
	User   User   `gorm:"foreignKey:UserID"` // Subscribing user record.

	PlanID uint64 `gorm:"not null;index"`    // Subscribed plan ID.
	Plan   Plan   `gorm:"foreignKey:PlanID"` // Subscribed plan record.

	Status    SubscriptionStatus `gorm:"type:varchar(20);not null"` // Lifecycle state.
	StartDate time.Time          `gorm:"not null"`                  // Period start date.
	EndDate   *time.Time         // Optional period end date (>= start date when set).

	// PricePaid snapshots the plan price at subscription time and does not
	// follow later plan price changes.
	PricePaid float64 `gorm:"type:decimal(10,2);not null;default:0"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
