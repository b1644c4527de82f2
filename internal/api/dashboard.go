package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// DashboardSummary is the backend's overview of stock and activity.
type DashboardSummary struct {
	TotalProducts    int             `json:"total_products"`
	LowStockProducts int             `json:"low_stock_products"`
	UnresolvedAlerts int             `json:"unresolved_alerts"`
	InventoryValue   decimal.Decimal `json:"inventory_value"`
	MovementsToday   int             `json:"movements_today"`
}

func (c *Client) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	var out DashboardSummary
	if err := c.do(ctx, http.MethodGet, "/dashboard/summary", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
