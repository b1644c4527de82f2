package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the direction of a stock movement.
type EntryType string

const (
	EntryIn         EntryType = "IN"
	EntryOut        EntryType = "OUT"
	EntryAdjustment EntryType = "ADJUSTMENT"
)

// Entry is one stock movement recorded by the backend.
type Entry struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Type      EntryType       `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note,omitempty"`
	UserID    int64           `json:"user_id"`
	Username  string          `json:"username,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Delta is the signed change this entry applies to stock.
func (e *Entry) Delta() decimal.Decimal {
	if e.Type == EntryOut {
		return e.Quantity.Neg()
	}
	return e.Quantity
}

// Input is the payload for recording a movement.
type Input struct {
	ProductID int64           `json:"product_id"`
	Type      EntryType       `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note,omitempty"`
}

// Validate checks the movement. IN and OUT need a positive quantity; ADJUSTMENT may be negative but not zero.
func (in *Input) Validate() error {
	if in.ProductID <= 0 {
		return errors.New("product_id is required")
	}
	switch in.Type {
	case EntryIn, EntryOut:
		if !in.Quantity.IsPositive() {
			return fmt.Errorf("%s quantity must be positive", in.Type)
		}
	case EntryAdjustment:
		if in.Quantity.IsZero() {
			return errors.New("adjustment quantity must not be zero")
		}
	default:
		return fmt.Errorf("unknown entry type %q", in.Type)
	}
	return nil
}

// Balance sums the deltas of entries.
func Balance(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		total = total.Add(entries[i].Delta())
	}
	return total
}
