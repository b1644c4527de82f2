package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	productdomain "inventory-mobile/client/internal/product/domain"
)

// ListProducts returns products, optionally filtered by a search term.
func (c *Client) ListProducts(ctx context.Context, search string) ([]productdomain.Product, error) {
	var q url.Values
	if search != "" {
		q = url.Values{"search": {search}}
	}
	var out []productdomain.Product
	if err := c.do(ctx, http.MethodGet, "/products", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*productdomain.Product, error) {
	var out productdomain.Product
	if err := c.do(ctx, http.MethodGet, idPath("/products", id, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct validates in and creates the product.
func (c *Client) CreateProduct(ctx context.Context, in productdomain.Input) (*productdomain.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	var out productdomain.Product
	if err := c.do(ctx, http.MethodPost, "/products", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in productdomain.Input) (*productdomain.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	var out productdomain.Product
	if err := c.do(ctx, http.MethodPut, idPath("/products", id, ""), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/products", id, ""), nil, nil, nil)
}
