package api

import (
	"context"
	"fmt"
	"net/http"

	userdomain "inventory-mobile/client/internal/user/domain"
)

func (c *Client) ListUsers(ctx context.Context) ([]userdomain.User, error) {
	var wire []wireUser
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]userdomain.User, len(wire))
	for i := range wire {
		out[i] = *wire[i].toDomain()
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, in userdomain.Input) (*userdomain.User, error) {
	if err := in.Validate(true); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	var out wireUser
	if err := c.do(ctx, http.MethodPost, "/users", nil, in, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// UpdateUser updates id; an empty password leaves it unchanged.
func (c *Client) UpdateUser(ctx context.Context, id int64, in userdomain.Input) (*userdomain.User, error) {
	if err := in.Validate(false); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	var out wireUser
	if err := c.do(ctx, http.MethodPut, idPath("/users", id, ""), nil, in, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/users", id, ""), nil, nil, nil)
}
