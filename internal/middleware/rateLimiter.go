package middleware

import (
	"sync"
	"time"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"golang.org/x/time/rate"
)

const (
	visitorTTL  = 10 * time.Minute
	maxVisitors = 10_000
)

var limiterInstance = NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client address. Buckets unused
// for visitorTTL are dropped once the table grows past maxVisitors.
type IPRateLimiter struct {
	visitors  map[string]*visitor
	mu        sync.Mutex
	rateLimit rate.Limit
	burstRate int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{visitors: make(map[string]*visitor), rateLimit: r, burstRate: b}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	now := time.Now()
	i.mu.Lock()
	defer i.mu.Unlock()

	v, exists := i.visitors[ip]
	if !exists {
		if len(i.visitors) >= maxVisitors {
			i.evictStale(now)
		}
		v = &visitor{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (i *IPRateLimiter) evictStale(now time.Time) {
	for ip, v := range i.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(i.visitors, ip)
		}
	}
}
