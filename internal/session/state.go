// Package session owns the process-wide session. Every mutation goes through a State transition;
// transitions are serialized and readers only ever see complete snapshots.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"inventory-mobile/client/internal/logging"
	"inventory-mobile/client/internal/security"
	"inventory-mobile/client/internal/session/domain"
	"inventory-mobile/client/internal/telemetry"
	"inventory-mobile/client/internal/tokenstore"
	userdomain "inventory-mobile/client/internal/user/domain"
)

// notifyTimeout bounds the backend logout notification started by Logout.
const notifyTimeout = 5 * time.Second

// TokenStore is the persistence boundary. Implementations swallow their own failures.
type TokenStore interface {
	Save(ctx context.Context, access, refresh string)
	Load(ctx context.Context) tokenstore.Tokens
	Clear(ctx context.Context)
}

// LogoutNotifier tells the backend a refresh token is no longer in use. accessToken is the
// ended session's bearer; the current session may already hold another one.
type LogoutNotifier interface {
	NotifyLogout(ctx context.Context, accessToken, refreshToken string) error
}

// Listener receives the snapshot produced by a transition.
type Listener func(domain.Session)

// State holds the current session.
type State struct {
	txMu      sync.Mutex // serializes transitions, including their store writes
	mu        sync.Mutex // guards cur and listeners
	cur       domain.Session
	listeners []Listener

	store    TokenStore
	notifier LogoutNotifier
	events   telemetry.EventEmitter
	logger   *zap.Logger
	notifyWG sync.WaitGroup
}

// Option configures a State.
type Option func(*State)

// WithLogoutNotifier sets the backend notified on Logout.
func WithLogoutNotifier(n LogoutNotifier) Option {
	return func(s *State) { s.notifier = n }
}

// WithEventEmitter sets where lifecycle events go.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(s *State) { s.events = e }
}

// NewState returns an empty session backed by store. store may be nil for a memory-only session.
func NewState(store TokenStore, logger *zap.Logger, opts ...Option) *State {
	s := &State{store: store, logger: logging.OrNop(logger)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot returns a copy of the current session.
func (s *State) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone()
}

// AccessToken returns the current access token, or "".
func (s *State) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.AccessToken
}

// RefreshToken returns the current refresh token, or "".
func (s *State) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.RefreshToken
}

// Subscribe registers fn to receive every new snapshot. The returned func unregisters it.
func (s *State) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

// LoginSucceeded installs a fresh session and persists its tokens.
func (s *State) LoginSucceeded(ctx context.Context, access, refresh string, user *userdomain.User) {
	if access == "" || user == nil {
		s.logger.Warn("session: login result without token or user, clearing")
		s.Clear(ctx)
		return
	}
	u := *user
	s.commit(func(cur *domain.Session) bool {
		*cur = domain.Session{AccessToken: access, RefreshToken: refresh, User: &u}
		return true
	}, func(next domain.Session) {
		s.persist(ctx, next.AccessToken, next.RefreshToken)
	})
	s.logger.Info("session: login succeeded", zap.Int64("user_id", u.ID), zap.String("token", security.Fingerprint(access)))
	telemetry.EmitAsync(s.events, ctx, &telemetry.Event{Type: telemetry.EventLoginSucceeded, UserID: u.ID})
}

// RefreshSucceeded swaps in a new access token. An empty refresh keeps the previous one.
// The user is unchanged. If the session was torn down while the refresh was in flight, the
// result is dropped and false is returned.
func (s *State) RefreshSucceeded(ctx context.Context, access, refresh string) bool {
	_, applied := s.commit(func(cur *domain.Session) bool {
		if cur.User == nil || access == "" {
			return false
		}
		cur.AccessToken = access
		if refresh != "" {
			cur.RefreshToken = refresh
		}
		cur.Loading = false
		cur.Error = ""
		return true
	}, func(next domain.Session) {
		s.persist(ctx, next.AccessToken, next.RefreshToken)
	})
	if !applied {
		s.logger.Info("session: refresh result dropped, no active session")
		return false
	}
	s.logger.Debug("session: access token renewed", zap.String("token", security.Fingerprint(access)))
	return true
}

// Logout tears the session down and notifies the backend in the background.
// The notification never delays or reverses the local transition.
func (s *State) Logout(ctx context.Context) {
	prev := s.reset(ctx)
	if prev.User != nil {
		telemetry.EmitAsync(s.events, ctx, &telemetry.Event{Type: telemetry.EventLogout, UserID: prev.User.ID})
	}
	if s.notifier == nil || prev.RefreshToken == "" {
		return
	}
	base := context.WithoutCancel(ctx)
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		nctx, cancel := context.WithTimeout(base, notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyLogout(nctx, prev.AccessToken, prev.RefreshToken); err != nil {
			s.logger.Warn("session: logout notification failed", zap.Error(err))
		}
	}()
}

// Clear tears the session down without contacting the backend.
func (s *State) Clear(ctx context.Context) {
	s.reset(ctx)
}

// WaitNotifications blocks until background logout notifications finish or ctx is done.
func (s *State) WaitNotifications(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.notifyWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Restore hydrates the session from the token store at process start. It does not check
// expiry; the first guard check does. A stored token that cannot be decoded is discarded.
func (s *State) Restore(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	tokens := s.store.Load(ctx)
	if tokens.Access == "" {
		return false
	}
	claims, err := security.Decode(tokens.Access)
	if err != nil {
		s.logger.Warn("session: stored access token is undecodable, discarding",
			zap.String("token", security.Fingerprint(tokens.Access)), zap.Error(err))
		s.store.Clear(ctx)
		return false
	}
	user := claims.User()
	s.commit(func(cur *domain.Session) bool {
		*cur = domain.Session{AccessToken: tokens.Access, RefreshToken: tokens.Refresh, User: user}
		return true
	}, nil)
	s.logger.Info("session: restored", zap.Int64("user_id", user.ID), zap.Bool("has_refresh", tokens.Refresh != ""))
	telemetry.EmitAsync(s.events, ctx, &telemetry.Event{Type: telemetry.EventSessionRestored, UserID: user.ID})
	return true
}

// SetLoading marks an operation in progress and clears the last error.
func (s *State) SetLoading() {
	s.commit(func(cur *domain.Session) bool {
		cur.Loading = true
		cur.Error = ""
		return true
	}, nil)
}

// SetError records the last operation's failure. A nil err only clears the loading flag.
func (s *State) SetError(err error) {
	s.commit(func(cur *domain.Session) bool {
		cur.Loading = false
		cur.Error = ""
		if err != nil {
			cur.Error = err.Error()
		}
		return true
	}, nil)
}

func (s *State) reset(ctx context.Context) domain.Session {
	var prev domain.Session
	s.commit(func(cur *domain.Session) bool {
		prev = *cur
		*cur = domain.Session{}
		return true
	}, func(domain.Session) {
		if s.store != nil {
			s.store.Clear(ctx)
		}
	})
	return prev
}

func (s *State) persist(ctx context.Context, access, refresh string) {
	if s.store != nil {
		s.store.Save(ctx, access, refresh)
	}
}

// commit applies fn to the session under mu. When fn reports a change, persist (if any) runs
// before the next transition may start, so the store sees writes in transition order.
// Listeners run last, outside every lock.
func (s *State) commit(fn func(cur *domain.Session) bool, persist func(next domain.Session)) (domain.Session, bool) {
	s.txMu.Lock()
	s.mu.Lock()
	if !fn(&s.cur) {
		s.mu.Unlock()
		s.txMu.Unlock()
		return domain.Session{}, false
	}
	next := s.cur.Clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		if l != nil {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()
	if persist != nil {
		persist(next)
	}
	s.txMu.Unlock()

	for _, l := range listeners {
		l(next.Clone())
	}
	return next, true
}
