package api

import (
	"context"
	"net/http"
	"net/url"

	alertdomain "inventory-mobile/client/internal/alert/domain"
)

func (c *Client) ListAlerts(ctx context.Context, unresolvedOnly bool) ([]alertdomain.Alert, error) {
	var q url.Values
	if unresolvedOnly {
		q = url.Values{"resolved": {"false"}}
	}
	var out []alertdomain.Alert
	if err := c.do(ctx, http.MethodGet, "/alerts", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ResolveAlert(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPut, idPath("/alerts", id, "/resolve"), nil, nil, nil)
}
