// Package repository persists token store values by key.
package repository

import "context"

// Repository is a small string key/value store.
type Repository interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Put inserts or overwrites the value under key.
	Put(ctx context.Context, key, value string) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
