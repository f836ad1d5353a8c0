package models

import "time"

// Usage records data consumption for a user on a calendar date. Multiple
// rows per user and date are allowed.
type Usage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Consuming user ID.

	UsageDate  time.Time `gorm:"not null;index"`                        // Calendar date of consumption.
	DataUsedGB float64   `gorm:"type:decimal(10,2);not null;default:0"` // Data consumed in GB.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
