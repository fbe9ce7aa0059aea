package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/pingate/pkg/http"
	"github.com/go-chi/httprate"
)

const msgTooManyRequests = "Trop de requêtes"

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// RateLimitByIP is a coarse in-process throttle in front of the gate. It only
// sheds floods; the lockout decision itself lives in the database.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, msgTooManyRequests)
		}),
	)
}
