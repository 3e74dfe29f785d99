package middleware

import (
	"net/http"

	"go.uber.org/ratelimit"

	"github.com/tester-platform/tester/pkg/common"
)

// FloodGuard smooths the overall request intake with a leaky bucket. It is
// a process-wide backstop against traffic spikes; the per-route, per-client
// limits are enforced separately inside each endpoint's pipeline.
//
// Take blocks until the next slot is available, so bursts are paced rather
// than rejected.
func FloodGuard(rps int) common.Middleware {
	limiter := ratelimit.New(rps)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter.Take()
			next.ServeHTTP(w, r)
		})
	}
}
