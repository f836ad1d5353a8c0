package mutation

import (
	"fmt"

	"github.com/telecomsuite/subtrack/internal/models"
)

// Kind identifies an alert-producing entity kind.
type Kind string

// Kind constants cover the entity kinds whose mutations derive alerts.
const (
	KindUser     Kind = "user"
	KindPlan     Kind = "plan"
	KindDiscount Kind = "discount"
)

// Action identifies a mutation verb.
type Action string

// Action constants cover the mutation verbs.
const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// AlertType maps a kind and action to the derived alert type, e.g.
// "plan_updated".
func (k Kind) AlertType(action Action) models.AlertType {
	return models.AlertType(fmt.Sprintf("%s_%s", k, action))
}

// Title returns the short human label for a kind and action.
func (k Kind) Title(action Action) string {
	var noun string
	switch k {
	case KindUser:
		noun = "User"
	case KindPlan:
		noun = "Plan"
	case KindDiscount:
		noun = "Discount"
	default:
		noun = string(k)
	}
	return fmt.Sprintf("%s %s", noun, action)
}

// NewAlert builds the derived alert for a mutation. A nil userID marks a
// system-wide alert.
func NewAlert(kind Kind, action Action, userID *uint64, message string) *models.Alert {
	return &models.Alert{
		UserID:  userID,
		Type:    kind.AlertType(action),
		Title:   kind.Title(action),
		Message: message,
	}
}
