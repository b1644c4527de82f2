package interceptors

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"inventory-mobile/client/internal/logging"
	"inventory-mobile/client/internal/telemetry"
)

const bearerPrefix = "Bearer "

// DefaultPublicPaths are the endpoints that take no bearer token and whose 401 means bad
// credentials rather than a dead session. Their successes still clear the latch.
var DefaultPublicPaths = []string{"/auth/login", "/auth/refresh"}

// TokenSource yields the current access token. It is read on every request, never cached.
type TokenSource interface {
	AccessToken() string
}

// Terminator runs the full logout; the session guard implements it.
type Terminator interface {
	ForceLogout(ctx context.Context, reason string)
}

// TerminatorFunc adapts a function to Terminator.
type TerminatorFunc func(ctx context.Context, reason string)

func (f TerminatorFunc) ForceLogout(ctx context.Context, reason string) { f(ctx, reason) }

// Authenticator attaches the bearer token and turns a backend 401 into one forced logout per
// burst. The latch is set by the first 401 and cleared by the next 2xx response.
// Only a 401 for the bearer that is still current counts: a request that went out with a
// superseded or explicitly set token, or with none, belongs to a session that is already gone.
type Authenticator struct {
	tokens     TokenSource
	terminator Terminator
	public     []string
	events     telemetry.EventEmitter
	logger     *zap.Logger
	latched    atomic.Bool
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithAuthEvents sets where the latch-winning 401 is reported.
func WithAuthEvents(e telemetry.EventEmitter) AuthOption {
	return func(a *Authenticator) { a.events = e }
}

// NewAuthenticator returns an Authenticator. publicPaths are matched as suffixes of the request
// path so a base URL prefix such as /api does not matter. nil publicPaths means DefaultPublicPaths.
func NewAuthenticator(tokens TokenSource, terminator Terminator, publicPaths []string, logger *zap.Logger, opts ...AuthOption) *Authenticator {
	if publicPaths == nil {
		publicPaths = DefaultPublicPaths
	}
	a := &Authenticator{tokens: tokens, terminator: terminator, public: publicPaths, logger: logging.OrNop(logger)}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Latched reports whether a 401 has been handled and no success has been seen since.
func (a *Authenticator) Latched() bool {
	return a.latched.Load()
}

// Middleware returns the authenticator as a Middleware.
func (a *Authenticator) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return a.roundTrip(next, r)
		})
	}
}

func (a *Authenticator) roundTrip(next http.RoundTripper, r *http.Request) (*http.Response, error) {
	public := a.isPublic(r.URL.Path)
	var sent string
	if r.Header.Get("Authorization") == "" {
		if token := a.tokens.AccessToken(); token != "" && !public {
			r = r.Clone(r.Context())
			r.Header.Set("Authorization", bearerPrefix+token)
			sent = token
		}
	}
	resp, err := next.RoundTrip(r)
	if err != nil {
		return resp, err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized && !public:
		if sent == "" || sent != a.tokens.AccessToken() {
			a.logger.Debug("api: 401 for a session that is no longer current", zap.String("path", r.URL.Path))
			break
		}
		if a.latched.CompareAndSwap(false, true) {
			a.logger.Warn("api: 401 from backend, forcing logout", zap.String("path", r.URL.Path))
			ctx := context.WithoutCancel(r.Context())
			telemetry.EmitAsync(a.events, ctx, &telemetry.Event{
				Type: telemetry.EventUnauthorized, Trigger: "response", Reason: r.URL.Path,
			})
			if a.terminator != nil {
				a.terminator.ForceLogout(ctx, "backend rejected the access token")
			}
		}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		a.latched.Store(false)
	}
	return resp, err
}

func (a *Authenticator) isPublic(path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, p := range a.public {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}
