package models

import "time"

// DiscountType identifies how a discount value is applied.
type DiscountType string

// DiscountType constants define the supported discount kinds.
const (
	// DiscountPercentage deducts a percentage of the plan price.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed deducts a fixed amount from the plan price.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether the discount type is one of the supported values.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Discount represents a redeemable discount code, optionally scoped to a plan.
type Discount struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PlanID *uint64 `gorm:"index"` // Optional plan scope; nil applies to any plan.

	Code        string `gorm:"type:varchar(50);not null;uniqueIndex"` // Unique redemption code.
	Description string `gorm:"type:text"`                             // Code description.

	DiscountType  DiscountType `gorm:"type:varchar(20);not null;default:'percentage'"` // How the value applies.
	DiscountValue float64      `gorm:"type:decimal(10,2);not null"`                    // Percentage or fixed amount.

	MinAmount   *float64 `gorm:"type:decimal(10,2)"` // Minimum plan price to qualify.
	MaxDiscount *float64 `gorm:"type:decimal(10,2)"` // Cap on the deducted amount.

	UsageLimit *int // Optional redemption cap.
	UsedCount  int  `gorm:"not null;default:0"` // Redemptions so far.

	IsActive bool `gorm:"not null;default:true"` // Whether the code can be redeemed.

	ValidFrom  *time.Time // Optional window start.
	ValidUntil *time.Time // Optional window end.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
