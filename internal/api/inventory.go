package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	inventorydomain "inventory-mobile/client/internal/inventory/domain"
)

// ListInventoryEntries returns stock movements; productID 0 lists all products.
func (c *Client) ListInventoryEntries(ctx context.Context, productID int64) ([]inventorydomain.Entry, error) {
	var q url.Values
	if productID > 0 {
		q = url.Values{"product_id": {strconv.FormatInt(productID, 10)}}
	}
	var out []inventorydomain.Entry
	if err := c.do(ctx, http.MethodGet, "/inventory", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateInventoryEntry(ctx context.Context, in inventorydomain.Input) (*inventorydomain.Entry, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("create inventory entry: %w", err)
	}
	var out inventorydomain.Entry
	if err := c.do(ctx, http.MethodPost, "/inventory", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
