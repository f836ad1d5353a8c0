package mutation

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/telecomsuite/subtrack/internal/models"
)

// Recorder performs domain mutations and their derived alert or audit rows
// as single transactions, so the entity tables and the notification trail
// never diverge. If the derived row cannot be written, the domain write
// rolls back with it.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Create inserts the entity and its derived alert atomically. The entity
// pointer is populated with its generated ID before alertFn runs, so the
// alert can reference it. A nil alertFn records a silent create.
func (r *Recorder) Create(ctx context.Context, entity any, alertFn func() *models.Alert) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(entity).Error; errCreate != nil {
			return errCreate
		}
		if alertFn == nil {
			return nil
		}
		return insertAlert(tx, alertFn())
	})
}

// CreateAudited inserts the entity and an audit trail row atomically, for
// signup-style operations that derive an AuditLog instead of an Alert.
func (r *Recorder) CreateAudited(ctx context.Context, entity any, auditFn func() *models.AuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(entity).Error; errCreate != nil {
			return errCreate
		}
		if auditFn == nil {
			return nil
		}
		return tx.Create(auditFn()).Error
	})
}

// Update applies column updates to the row identified by id and inserts the
// derived alert atomically. A nil alert records a silent update (empty diff).
func (r *Recorder) Update(ctx context.Context, model any, id uint64, updates map[string]any, alert *models.Alert) error {
	if updates == nil {
		updates = map[string]any{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(model).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return insertAlert(tx, alert)
	})
}

// Delete runs the cascade steps, removes the row identified by id, and
// inserts the derived alert, all in one transaction.
func (r *Recorder) Delete(ctx context.Context, model any, id uint64, alert *models.Alert, cascades ...func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, step := range cascades {
			if errStep := step(tx); errStep != nil {
				return errStep
			}
		}
		res := tx.Delete(model, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return insertAlert(tx, alert)
	})
}

// Audit records an authentication trail row.
func (r *Recorder) Audit(ctx context.Context, entry *models.AuditLog) error {
	if entry == nil {
		return fmt.Errorf("mutation: nil audit entry")
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// insertAlert validates and writes the derived alert inside the transaction.
func insertAlert(tx *gorm.DB, alert *models.Alert) error {
	if alert == nil {
		return nil
	}
	if !alert.Type.Valid() {
		return fmt.Errorf("mutation: invalid alert type %q", alert.Type)
	}
	return tx.Create(alert).Error
}
