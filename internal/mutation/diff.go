package mutation

import (
	"fmt"
	"strings"
)

// Change records one field transition inside an update.
type Change struct {
	Field string // Column-style field name.
	Old   any    // Value before the update.
	New   any    // Value after the update.
}

// ChangeSet accumulates field-level differences between a stored entity and
// the fields supplied in an update request. Fields the request omits are
// never compared.
type ChangeSet struct {
	changes []Change
}

// Set records a change when old and new render differently. Equal values are
// dropped so no-op updates stay silent.
func (cs *ChangeSet) Set(field string, oldValue, newValue any) {
	if renderValue(oldValue) == renderValue(newValue) {
		return
	}
	cs.changes = append(cs.changes, Change{Field: field, Old: oldValue, New: newValue})
}

// Empty reports whether no field actually changed.
func (cs *ChangeSet) Empty() bool {
	return len(cs.changes) == 0
}

// Message renders the diff as "field: old -> new" fragments joined by commas.
func (cs *ChangeSet) Message() string {
	fragments := make([]string, 0, len(cs.changes))
	for _, change := range cs.changes {
		fragments = append(fragments, fmt.Sprintf("%s: %s -> %s",
			change.Field, renderValue(change.Old), renderValue(change.New)))
	}
	return strings.Join(fragments, ", ")
}

// renderValue formats a value for alert messages. Floats drop trailing
// zeros so prices read "29.99" rather than "29.990000".
func renderValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return "none"
	case float64:
		return formatDecimal(typed)
	case *float64:
		if typed == nil {
			return "none"
		}
		return formatDecimal(*typed)
	case *int:
		if typed == nil {
			return "none"
		}
		return fmt.Sprintf("%d", *typed)
	case *uint64:
		if typed == nil {
			return "none"
		}
		return fmt.Sprintf("%d", *typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

// FormatPrice renders a price the same way diff messages do, so handler-built
// alert text stays consistent with rendered diffs.
func FormatPrice(v float64) string {
	return formatDecimal(v)
}

// formatDecimal trims a float to a compact decimal string.
func formatDecimal(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
