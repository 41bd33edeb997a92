package ratelimit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/corray333/backend-labs/checkout/pkg/http/response"
	"golang.org/x/time/rate"
)

const idleTTL = 30 * time.Minute

type visitor struct {
	limiter *rate.Limiter
	last    time.Time
}

// Limiter is a token bucket per client IP.
type Limiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

// New creates a Limiter allowing rps requests per second with the given burst per IP.
func New(rps float64, burst int) *Limiter {
	return &Limiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: map[string]*visitor{},
	}
}

// Allow reports whether a request from ip may proceed.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.last = time.Now()
	l.mu.Unlock()

	return v.limiter.Allow()
}

// Cleanup forgets visitors idle for longer than 30 minutes until ctx is done.
func (l *Limiter) Cleanup(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.prune(now)
		}
	}
}

func (l *Limiter) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, v := range l.visitors {
		if now.Sub(v.last) > idleTTL {
			delete(l.visitors, ip)
		}
	}
}

// Middleware answers 429 once a client exceeds its budget.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !l.Allow(ip) {
			w.Header().Set("Retry-After", "1")
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		next.ServeHTTP(w, r)
	})
}
