// Package health reports whether the client's local dependencies are usable at startup.
package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const checkTimeout = 3 * time.Second

// Pinger is satisfied by *sql.DB (token store).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is satisfied by the activity policy evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker runs the configured checks. Nil dependencies are skipped.
type Checker struct {
	store  Pinger
	policy PolicyChecker
}

func NewChecker(store Pinger, policy PolicyChecker) *Checker {
	return &Checker{store: store, policy: policy}
}

// Report is the outcome of one Check.
type Report struct {
	Store  error
	Policy error
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	return r.Store == nil && r.Policy == nil
}

// Err joins the failures, or returns nil.
func (r Report) Err() error {
	var errs []error
	if r.Store != nil {
		errs = append(errs, fmt.Errorf("token store: %w", r.Store))
	}
	if r.Policy != nil {
		errs = append(errs, fmt.Errorf("activity policy: %w", r.Policy))
	}
	return errors.Join(errs...)
}

// Check runs each check with its own timeout.
func (c *Checker) Check(ctx context.Context) Report {
	var r Report
	if c.store != nil {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		r.Store = c.store.PingContext(cctx)
		cancel()
	}
	if c.policy != nil {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		r.Policy = c.policy.HealthCheck(cctx)
		cancel()
	}
	return r
}
