package api

import (
	"context"
	"net/http"

	auditdomain "inventory-mobile/client/internal/audit/domain"
)

// ListChangeRecords returns the audit log, newest first as ordered by the backend.
func (c *Client) ListChangeRecords(ctx context.Context) ([]auditdomain.ChangeRecord, error) {
	var out []auditdomain.ChangeRecord
	if err := c.do(ctx, http.MethodGet, "/audit-logs", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RevertChange asks the backend to undo change id.
func (c *Client) RevertChange(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, idPath("/audit-logs", id, "/revert"), nil, nil, nil)
}
