package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Stock is maintained by the backend from inventory entries.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       decimal.Decimal `json:"stock"`
	MinStock    decimal.Decimal `json:"min_stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LowStock reports whether stock is at or below the configured minimum. A zero minimum never alerts.
func (p *Product) LowStock() bool {
	return p.MinStock.IsPositive() && p.Stock.LessThanOrEqual(p.MinStock)
}

// StockValue is price times stock.
func (p *Product) StockValue() decimal.Decimal {
	return p.Price.Mul(p.Stock)
}

// Input is the create/update payload. Stock is not settable; it changes through inventory entries.
type Input struct {
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Price       decimal.Decimal `json:"price"`
	MinStock    decimal.Decimal `json:"min_stock"`
}

// Validate normalizes whitespace and checks required fields.
func (in *Input) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	if in.Name == "" {
		return errors.New("name is required")
	}
	if in.SKU == "" {
		return errors.New("sku is required")
	}
	if in.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	if in.MinStock.IsNegative() {
		return errors.New("min_stock must not be negative")
	}
	return nil
}
