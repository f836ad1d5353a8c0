package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog traces authentication events for compliance. Rows intentionally
// outlive their actors, so no GORM association is declared for UserID.
type AuditLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Acting user ID.

	Action    string  `gorm:"type:varchar(50);not null"` // Action name, e.g. "user_login".
	TableName string  `gorm:"type:varchar(50)"`          // Affected table, when applicable.
	RecordID  *uint64 // Affected row ID, when applicable.

	OldValues datatypes.JSON `gorm:"type:jsonb"` // Snapshot before the action.
	NewValues datatypes.JSON `gorm:"type:jsonb"` // Snapshot after the action.

	IPAddress string `gorm:"type:varchar(45)"`  // Request origin address.
	UserAgent string `gorm:"type:varchar(255)"` // Request user agent.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
