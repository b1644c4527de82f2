// Package guard decides on app start, on navigation and on a fixed timer whether the session is
// still usable, and drives refresh or forced logout when it is not.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"inventory-mobile/client/internal/logging"
	"inventory-mobile/client/internal/security"
	"inventory-mobile/client/internal/session/domain"
	"inventory-mobile/client/internal/telemetry"
)

const (
	DefaultInterval = 5 * time.Minute
	DefaultBuffer   = 5 * time.Minute

	meterName  = "inventory-mobile/client/session/guard"
	refreshKey = "refresh"
)

// Status is the guard's verdict on the session.
type Status string

const (
	StatusUnchecked  Status = "UNCHECKED"
	StatusValid      Status = "VALID"
	StatusRefreshing Status = "REFRESHING"
	StatusExpired    Status = "EXPIRED"
)

// Trigger names what started a check.
type Trigger string

const (
	TriggerStart      Trigger = "start"
	TriggerNavigation Trigger = "navigation"
	TriggerTimer      Trigger = "timer"
	TriggerResponse   Trigger = "response"
)

// Session is the part of session.State the guard drives.
type Session interface {
	Snapshot() domain.Session
	Logout(ctx context.Context)
	Clear(ctx context.Context)
}

// Refresher renews the access token and applies the result to the session. It fails without a
// network call when no refresh token is held.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Redirector sends the user to the login entry point.
type Redirector interface {
	RedirectToLogin(ctx context.Context, reason string)
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(ctx context.Context, reason string)

func (f RedirectFunc) RedirectToLogin(ctx context.Context, reason string) { f(ctx, reason) }

// Guard is safe for concurrent use. Checks from the timer and from navigation may overlap;
// they share a single in-flight refresh and at most one redirect per expiry episode.
type Guard struct {
	session    Session
	refresher  Refresher
	redirector Redirector
	events     telemetry.EventEmitter
	logger     *zap.Logger
	nowF       func() time.Time
	interval   time.Duration
	buffer     time.Duration

	flight singleflight.Group

	mu         sync.Mutex
	status     Status
	redirected bool // a redirect already happened in the current expiry episode
	started    bool
	stopped    bool
	cron       *cron.Cron

	checks    metric.Int64Counter
	refreshes metric.Int64Counter
	forced    metric.Int64Counter
}

// Option configures a Guard.
type Option func(*Guard)

// WithInterval sets the timer period. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithBuffer sets how close to expiry a token is renewed. Zero renews only expired tokens.
func WithBuffer(d time.Duration) Option {
	return func(g *Guard) {
		if d >= 0 {
			g.buffer = d
		}
	}
}

func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(g *Guard) { g.events = e }
}

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.nowF = now }
}

// WithMeter overrides the global meter used for guard counters.
func WithMeter(m metric.Meter) Option {
	return func(g *Guard) { g.initMetrics(m) }
}

// New returns a Guard in StatusUnchecked. Call Start to run the app-start check and the timer.
func New(session Session, refresher Refresher, redirector Redirector, logger *zap.Logger, opts ...Option) *Guard {
	g := &Guard{
		session:    session,
		refresher:  refresher,
		redirector: redirector,
		logger:     logging.OrNop(logger),
		nowF:       time.Now,
		interval:   DefaultInterval,
		buffer:     DefaultBuffer,
		status:     StatusUnchecked,
	}
	g.initMetrics(otel.Meter(meterName))
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Guard) initMetrics(m metric.Meter) {
	var err error
	if g.checks, err = m.Int64Counter("session.guard.checks",
		metric.WithDescription("Session checks by trigger and outcome")); err != nil {
		g.logger.Warn("guard: counter", zap.Error(err))
	}
	if g.refreshes, err = m.Int64Counter("session.guard.refreshes",
		metric.WithDescription("Access token refresh attempts by outcome")); err != nil {
		g.logger.Warn("guard: counter", zap.Error(err))
	}
	if g.forced, err = m.Int64Counter("session.guard.forced_logouts",
		metric.WithDescription("Forced logouts by trigger")); err != nil {
		g.logger.Warn("guard: counter", zap.Error(err))
	}
}

// Status returns the last verdict.
func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Start runs the app-start check and schedules the periodic check. Calling Start twice is an error.
func (g *Guard) Start(ctx context.Context) (Status, error) {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return g.Status(), errors.New("guard: already started")
	}
	g.started = true
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{g.logger.Sugar()})))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", g.interval), func() {
		if ctx.Err() != nil {
			return
		}
		g.Check(ctx, TriggerTimer)
	}); err != nil {
		g.mu.Unlock()
		return StatusUnchecked, fmt.Errorf("guard: schedule: %w", err)
	}
	g.cron = c
	g.mu.Unlock()

	status := g.Check(ctx, TriggerStart)
	c.Start()
	g.logger.Info("guard: started", zap.Duration("interval", g.interval), zap.Duration("buffer", g.buffer))
	return status, nil
}

// Stop cancels the timer and waits for a running timer check to finish or ctx to end.
// Checks requested after Stop do nothing.
func (g *Guard) Stop(ctx context.Context) error {
	g.mu.Lock()
	g.stopped = true
	c := g.cron
	g.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Navigated is the navigation hook.
func (g *Guard) Navigated(ctx context.Context) Status {
	return g.Check(ctx, TriggerNavigation)
}

// Check evaluates the session once:
//  1. no token or no user: EXPIRED and redirect;
//  2. token expired or inside the buffer: refresh, then VALID, or forced logout and EXPIRED;
//  3. otherwise VALID.
//
// A failed refresh is not retried within the check; the next trigger retries.
func (g *Guard) Check(ctx context.Context, trigger Trigger) Status {
	g.mu.Lock()
	if g.stopped {
		s := g.status
		g.mu.Unlock()
		return s
	}
	g.mu.Unlock()

	snap := g.session.Snapshot()
	if !snap.Authenticated() {
		g.expire(ctx, trigger, "no active session", snap)
		g.count(ctx, g.checks, trigger, "expired")
		return StatusExpired
	}
	if !security.IsExpiredAt(snap.AccessToken, g.buffer, g.nowF()) {
		g.markValid(ctx, trigger, snap)
		g.count(ctx, g.checks, trigger, "valid")
		return StatusValid
	}

	g.setStatus(StatusRefreshing)
	g.logger.Info("guard: access token expiring, refreshing",
		zap.String("trigger", string(trigger)), zap.String("token", security.Fingerprint(snap.AccessToken)))
	_, err, shared := g.flight.Do(refreshKey, func() (any, error) {
		return nil, g.refresher.Refresh(ctx)
	})
	if err == nil {
		// The session may have been torn down while the refresh was in flight.
		if after := g.session.Snapshot(); !after.Authenticated() {
			err = errors.New("session ended during refresh")
		}
	}
	if err != nil {
		g.count(ctx, g.refreshes, trigger, "failure")
		g.logger.Warn("guard: refresh failed", zap.String("trigger", string(trigger)), zap.Bool("shared", shared), zap.Error(err))
		telemetry.EmitAsync(g.events, ctx, &telemetry.Event{
			Type: telemetry.EventRefreshFailed, UserID: snap.User.ID, Trigger: string(trigger), Reason: err.Error(),
		})
		g.forceLogout(ctx, trigger, "refresh failed: "+err.Error())
		g.count(ctx, g.checks, trigger, "expired")
		return StatusExpired
	}
	g.count(ctx, g.refreshes, trigger, "success")
	if !shared {
		telemetry.EmitAsync(g.events, ctx, &telemetry.Event{
			Type: telemetry.EventRefreshSucceeded, UserID: snap.User.ID, Trigger: string(trigger),
		})
	}
	g.markValid(ctx, trigger, snap)
	g.count(ctx, g.checks, trigger, "refreshed")
	return StatusValid
}

// ForceLogout runs the full logout (Logout then Clear) and redirects to login if this expiry
// episode has not redirected yet. The Request Authenticator calls it on a 401.
func (g *Guard) ForceLogout(ctx context.Context, reason string) {
	g.forceLogout(ctx, TriggerResponse, reason)
}

// Logout ends the session at the user's request. The guard moves to EXPIRED and owes no
// redirect for this episode; the next successful check starts a new one.
func (g *Guard) Logout(ctx context.Context) {
	g.session.Logout(ctx)
	g.mu.Lock()
	g.status = StatusExpired
	g.redirected = true
	g.mu.Unlock()
	g.logger.Info("guard: signed out by user")
}

func (g *Guard) forceLogout(ctx context.Context, trigger Trigger, reason string) {
	snap := g.session.Snapshot()
	if snap.AccessToken != "" || snap.RefreshToken != "" || snap.User != nil {
		g.session.Logout(ctx)
		g.session.Clear(ctx)
	}
	if !g.enterExpired() {
		g.logger.Debug("guard: already redirected in this episode", zap.String("trigger", string(trigger)))
		return
	}
	var userID int64
	if snap.User != nil {
		userID = snap.User.ID
	}
	g.logger.Warn("guard: forced logout", zap.String("trigger", string(trigger)), zap.String("reason", reason), zap.Int64("user_id", userID))
	g.count(ctx, g.forced, trigger, "")
	telemetry.EmitAsync(g.events, ctx, &telemetry.Event{
		Type: telemetry.EventForcedLogout, UserID: userID, Trigger: string(trigger), Reason: reason,
	})
	g.redirect(ctx, reason)
}

// expire handles a check that found no session. Nothing is torn down; only the redirect is owed.
func (g *Guard) expire(ctx context.Context, trigger Trigger, reason string, snap domain.Session) {
	if snap.AccessToken != "" || snap.RefreshToken != "" {
		g.session.Clear(ctx)
	}
	if !g.enterExpired() {
		return
	}
	g.logger.Info("guard: session expired", zap.String("trigger", string(trigger)), zap.String("reason", reason))
	telemetry.EmitAsync(g.events, ctx, &telemetry.Event{
		Type: telemetry.EventSessionExpired, Trigger: string(trigger), Reason: reason,
	})
	g.redirect(ctx, reason)
}

// enterExpired moves to EXPIRED and reports whether this is the first redirect of the episode.
func (g *Guard) enterExpired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = StatusExpired
	if g.redirected {
		return false
	}
	g.redirected = true
	return true
}

func (g *Guard) markValid(ctx context.Context, trigger Trigger, snap domain.Session) {
	g.mu.Lock()
	prev := g.status
	g.status = StatusValid
	g.redirected = false
	g.mu.Unlock()
	if prev != StatusValid {
		telemetry.EmitAsync(g.events, ctx, &telemetry.Event{
			Type: telemetry.EventSessionValid, UserID: snap.User.ID, Trigger: string(trigger),
		})
	}
}

func (g *Guard) setStatus(s Status) {
	g.mu.Lock()
	g.status = s
	g.mu.Unlock()
}

func (g *Guard) redirect(ctx context.Context, reason string) {
	if g.redirector != nil {
		g.redirector.RedirectToLogin(ctx, reason)
	}
}

func (g *Guard) count(ctx context.Context, c metric.Int64Counter, trigger Trigger, outcome string) {
	if c == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("trigger", string(trigger))}
	if outcome != "" {
		attrs = append(attrs, attribute.String("outcome", outcome))
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// cronLogger routes cron's logging to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw("guard cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw("guard cron: "+msg, append(keysAndValues, "error", err)...)
}
