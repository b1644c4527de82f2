package interceptors

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"inventory-mobile/client/internal/logging"
)

// Logging logs each request's method, path, status and duration. Headers and bodies are never logged.
func Logging(logger *zap.Logger) Middleware {
	logger = logging.OrNop(logger)
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", r.Header.Get(RequestIDHeader)),
			}
			switch {
			case err != nil:
				logger.Warn("api request failed", append(fields, zap.Error(err))...)
			case resp.StatusCode >= http.StatusInternalServerError:
				logger.Warn("api request", append(fields, zap.Int("status", resp.StatusCode))...)
			default:
				logger.Debug("api request", append(fields, zap.Int("status", resp.StatusCode))...)
			}
			return resp, err
		})
	}
}
