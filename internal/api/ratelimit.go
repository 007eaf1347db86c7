package api

import (
	"net/http"
	"path"

	"golang.org/x/time/rate"
)

const reasonRateLimited = "Too many requests"

// submitLimiter throttles job submissions with a token bucket shared by every
// query route. A nil limiter admits everything.
type submitLimiter struct {
	limiter *rate.Limiter
}

func newSubmitLimiter(rps float64, burst int) *submitLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &submitLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *submitLimiter) middleware(s *Server) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.limiter.Allow() {
				recordSubmission(path.Base(r.URL.Path), outcomeRateLimited)
				w.Header().Set("Retry-After", "1")
				s.writeError(w, http.StatusTooManyRequests, reasonRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
