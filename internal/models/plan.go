package models

import "time"

// Plan represents a subscription plan configuration.
type Plan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name           string  `gorm:"type:varchar(100);not null"`            // Plan name.
	Description    string  `gorm:"type:text"`                             // Plan description.
	MonthlyPrice   float64 `gorm:"type:decimal(10,2);not null;default:0"` // Monthly price.
	MonthlyQuotaGB int     `gorm:"not null;default:0"`                    // Monthly data quota in GB.

	IsActive bool `gorm:"not null;default:true"` // Whether the plan can be subscribed to.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
