package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const visitorIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-caller token bucket. Callers are keyed by employee,
// then by auth user, then by client IP.
type RateLimiter struct {
	rps    rate.Limit
	burst  int
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewRateLimiter creates a limiter allowing rps sustained requests per caller
// with bursts up to burst
func NewRateLimiter(rps float64, burst int, logger *zap.Logger) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		logger:   logger,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Limit is the middleware. It must run after ExtractTenant to key on the
// employee.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)
		lim := l.limiterFor(key)

		if !lim.AllowN(l.now(), 1) {
			l.logger.Warn("request blocked by rate limit",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("caller", key))
			retry := l.retryAfter()
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			_ = utils.WriteTooManyRequests(w, "Too many requests, slow down", map[string]interface{}{
				"retry_after_seconds": retry,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Run evicts idle callers every minute until ctx is done
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Sweep drops callers not seen for a while and returns how many remain
func (l *RateLimiter) Sweep() int {
	cutoff := l.now().Add(-visitorIdleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
		}
	}
	return len(l.visitors)
}

// retryAfter is the whole seconds until one token refills
func (l *RateLimiter) retryAfter() int {
	if l.rps <= 0 {
		return 60
	}
	return int(math.Ceil(1 / float64(l.rps)))
}

func (l *RateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

func callerKey(r *http.Request) string {
	ctx := r.Context()
	if emp := GetEmployeeFromContext(ctx); emp != nil {
		return "employee:" + emp.ID.String()
	}
	if p := GetPrincipalFromContext(ctx); p != nil {
		return "user:" + p.UserID.String()
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}
