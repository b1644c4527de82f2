package interceptors

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is sent on every request so backend logs can be correlated with the client's.
const RequestIDHeader = "X-Request-ID"

// RequestID sets X-Request-ID from the context, or a fresh UUID, unless the request already has one.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(r)
			}
			id, ok := GetRequestID(r.Context())
			if !ok {
				id = uuid.NewString()
			}
			r2 := r.Clone(r.Context())
			r2.Header.Set(RequestIDHeader, id)
			return next.RoundTrip(r2)
		})
	}
}
