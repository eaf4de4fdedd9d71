package discovery

import (
	"context"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a host's limiter is kept after its last use.
const limiterIdleTTL = 10 * time.Minute

type hostLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// DomainLimiter spaces out requests to the same host. Each wait draws the
// next gap from [0.5, 1.5) times the base delay. Hosts idle for longer than
// limiterIdleTTL are forgotten.
type DomainLimiter struct {
	delay     time.Duration
	now       func() time.Time
	mu        sync.Mutex
	limiters  map[string]*hostLimiter
	nextPrune time.Time
}

// NewDomainLimiter creates a limiter with the given base delay. A
// non-positive delay disables limiting.
func NewDomainLimiter(delay time.Duration) *DomainLimiter {
	return &DomainLimiter{
		delay:    delay,
		now:      time.Now,
		limiters: make(map[string]*hostLimiter),
	}
}

// Wait blocks until a request to rawURL's host may proceed.
func (dl *DomainLimiter) Wait(ctx context.Context, rawURL string) error {
	if dl.delay <= 0 {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		// Invalid URL, let it proceed (will fail elsewhere)
		return nil
	}

	limiter := dl.limiter(u.Host)
	jitter := 0.5 + rand.Float64()
	limiter.SetLimit(rate.Every(time.Duration(float64(dl.delay) * jitter)))
	return limiter.Wait(ctx)
}

// Hosts returns how many hosts currently have a limiter.
func (dl *DomainLimiter) Hosts() int {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return len(dl.limiters)
}

func (dl *DomainLimiter) limiter(host string) *rate.Limiter {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	now := dl.now()
	if now.After(dl.nextPrune) {
		for h, l := range dl.limiters {
			if now.Sub(l.lastUsed) > limiterIdleTTL {
				delete(dl.limiters, h)
			}
		}
		dl.nextPrune = now.Add(limiterIdleTTL)
	}

	l, ok := dl.limiters[host]
	if !ok {
		l = &hostLimiter{limiter: rate.NewLimiter(rate.Every(dl.delay), 1)}
		dl.limiters[host] = l
	}
	l.lastUsed = now
	return l.limiter
}
