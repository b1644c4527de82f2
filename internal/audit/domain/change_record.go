package domain

import "time"

// Action is the kind of change a record describes.
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// ChangeRecord is one audit log entry as returned by the backend. Records are never edited
// on the client; a revert shows up as a new record after the next fetch.
type ChangeRecord struct {
	ID        int64          `json:"id"`
	TableName string         `json:"table_name"`
	RecordID  int64          `json:"record_id"`
	Action    Action         `json:"action"`
	OldValues map[string]any `json:"old_values,omitempty"`
	NewValues map[string]any `json:"new_values,omitempty"`
	UserID    int64          `json:"user_id"`
	Username  string         `json:"username"`
	CreatedAt time.Time      `json:"created_at"`
}

// ChangedFields lists the keys whose values differ between OldValues and NewValues, in no particular order.
func (r *ChangeRecord) ChangedFields() []string {
	var out []string
	seen := make(map[string]bool)
	for k, nv := range r.NewValues {
		seen[k] = true
		if ov, ok := r.OldValues[k]; !ok || !equalValue(ov, nv) {
			out = append(out, k)
		}
	}
	for k := range r.OldValues {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return out
}

func equalValue(a, b any) bool {
	switch av := a.(type) {
	case map[string]any, []any:
		return false
	default:
		return av == b
	}
}
