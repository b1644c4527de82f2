// Package interceptors holds the outbound HTTP middleware the API client runs every request through.
package interceptors

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Middleware wraps a RoundTripper.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain wraps base so that mws[0] runs first on the way out and last on the way back.
// A nil base means http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// NewTransport builds the client's standard stack: OTel client spans outermost, then request IDs,
// logging, and the authenticator closest to the wire.
func NewTransport(base http.RoundTripper, auth *Authenticator, logger *zap.Logger) http.RoundTripper {
	mws := []Middleware{RequestID(), Logging(logger)}
	if auth != nil {
		mws = append(mws, auth.Middleware())
	}
	return otelhttp.NewTransport(Chain(base, mws...))
}
