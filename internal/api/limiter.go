package api

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"ohbang/internal/config"

	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL время простоя, после которого лимитер клиента удаляется
	limiterIdleTTL = 10 * time.Minute
	// limiterSweepInterval как часто проверять простаивающих клиентов
	limiterSweepInterval = time.Minute
)

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64
}

// rateLimiter keeps one token bucket per client IP. Buckets idle for
// limiterIdleTTL are swept on the request path.
type rateLimiter struct {
	limiters  sync.Map // map[string]*clientLimiter
	cfg       *config.APIConfig
	lastSweep atomic.Int64
	now       func() time.Time
}

func newRateLimiter(cfg *config.APIConfig) *rateLimiter {
	l := &rateLimiter{
		cfg: cfg,
		now: time.Now,
	}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	now := l.now().UnixNano()
	if v, ok := l.limiters.Load(key); ok {
		if cl, ok := v.(*clientLimiter); ok {
			cl.lastSeen.Store(now)
			return cl.lim
		}
	}

	burst := l.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	cl := &clientLimiter{lim: rate.NewLimiter(rate.Limit(l.cfg.RateLimit.RPS), burst)}
	cl.lastSeen.Store(now)
	actual, loaded := l.limiters.LoadOrStore(key, cl)
	if loaded {
		if actualCl, ok := actual.(*clientLimiter); ok {
			actualCl.lastSeen.Store(now)
			return actualCl.lim
		}
	}
	return cl.lim
}

// sweep drops idle buckets at most once per limiterSweepInterval.
func (l *rateLimiter) sweep() {
	now := l.now()
	last := l.lastSweep.Load()
	if now.Sub(time.Unix(0, last)) < limiterSweepInterval {
		return
	}
	if !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	l.limiters.Range(func(key, v any) bool {
		if cl, ok := v.(*clientLimiter); ok && cl.lastSeen.Load() < cutoff {
			l.limiters.Delete(key)
		}
		return true
	})
}

func (l *rateLimiter) size() int {
	n := 0
	l.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.cfg.RateLimit.RPS > 0 {
			l.sweep()
			if !l.getLimiter(clientIP(r)).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}
