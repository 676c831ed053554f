package mw

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vango-go/vai-talk/pkg/core"
	"github.com/vango-go/vai-talk/pkg/gateway/apierror"
	"github.com/vango-go/vai-talk/pkg/gateway/config"
	"github.com/vango-go/vai-talk/pkg/gateway/ratelimit"
)

// RateLimit throttles the expensive POST endpoints per client IP.
func RateLimit(cfg config.Config, limiter *ratelimit.Limiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health, metrics and artifact downloads must remain cheap and reliable.
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		dec := limiter.AcquireRequest(ClientIP(r, cfg.TrustProxyHeaders), time.Now())
		if !dec.Allowed {
			reqID, _ := RequestIDFrom(r.Context())
			if dec.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfter))
			}
			env, status := apierror.FromError(core.NewRateLimitError("rate limit exceeded"), reqID)
			writeJSONError(w, status, env)
			return
		}
		if dec.Permit != nil {
			defer dec.Permit.Release()
		}

		next.ServeHTTP(w, r)
	})
}
