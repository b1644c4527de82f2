package domain

import "time"

type Type string

const (
	TypeLowStock   Type = "LOW_STOCK"
	TypeOutOfStock Type = "OUT_OF_STOCK"
)

// Alert is a stock alert raised by the backend.
type Alert struct {
	ID          int64      `json:"id"`
	ProductID   int64      `json:"product_id"`
	ProductName string     `json:"product_name,omitempty"`
	Type        Type       `json:"type"`
	Message     string     `json:"message"`
	Resolved    bool       `json:"resolved"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Unresolved returns the alerts that are still open, preserving order.
func Unresolved(alerts []Alert) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if !a.Resolved {
			out = append(out, a)
		}
	}
	return out
}
