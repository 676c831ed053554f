package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Config struct {
	RPS   float64
	Burst int

	MaxConcurrentRequests int

	// Operational bounds for the in-memory map (single-process only).
	MaxEntries int
	EntryTTL   time.Duration
}

// Limiter applies a token bucket and a concurrency cap per client key.
type Limiter struct {
	cfg Config

	mu sync.Mutex
	m  map[string]*clientLimiter
}

type clientLimiter struct {
	tb       *rate.Limiter
	reqSem   chan struct{}
	lastSeen time.Time
}

func New(cfg Config) *Limiter {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = 30 * time.Minute
	}
	return &Limiter{
		cfg: cfg,
		m:   make(map[string]*clientLimiter),
	}
}

type Permit struct {
	release func()
}

func (p *Permit) Release() {
	if p == nil || p.release == nil {
		return
	}
	p.release()
	p.release = nil
}

type Decision struct {
	Allowed    bool
	RetryAfter int
	Permit     *Permit
}

func (l *Limiter) AcquireRequest(key string, now time.Time) Decision {
	if key == "" {
		key = "anonymous"
	}
	cl := l.getOrCreate(key, now)

	// RPS/burst (token bucket).
	var res *rate.Reservation
	if cl.tb != nil {
		res = cl.tb.ReserveN(now, 1)
		if !res.OK() {
			return Decision{Allowed: false, RetryAfter: 1}
		}
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			return Decision{Allowed: false, RetryAfter: retryAfterSeconds(delay)}
		}
	}

	// Concurrency cap. A request turned away here hands its token back.
	if l.cfg.MaxConcurrentRequests > 0 {
		select {
		case cl.reqSem <- struct{}{}:
			return Decision{
				Allowed: true,
				Permit:  &Permit{release: func() { <-cl.reqSem }},
			}
		default:
			if res != nil {
				res.CancelAt(now)
			}
			return Decision{Allowed: false, RetryAfter: 1}
		}
	}

	return Decision{Allowed: true, Permit: &Permit{release: func() {}}}
}

// Len reports how many client entries are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) getOrCreate(key string, now time.Time) *clientLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cl, ok := l.m[key]; ok {
		cl.lastSeen = now
		return cl
	}

	if len(l.m) >= l.cfg.MaxEntries {
		l.gcLocked(now)
		// If still too big, drop one arbitrary idle entry.
		if len(l.m) >= l.cfg.MaxEntries {
			for k, v := range l.m {
				if len(v.reqSem) == 0 {
					delete(l.m, k)
					break
				}
			}
		}
	}

	cl := &clientLimiter{
		reqSem:   make(chan struct{}, max(1, l.cfg.MaxConcurrentRequests)),
		lastSeen: now,
	}
	if l.cfg.RPS > 0 && l.cfg.Burst > 0 {
		cl.tb = rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)
	}
	l.m[key] = cl
	return cl
}

func (l *Limiter) gcLocked(now time.Time) {
	for k, v := range l.m {
		if now.Sub(v.lastSeen) > l.cfg.EntryTTL && len(v.reqSem) == 0 {
			delete(l.m, k)
		}
	}
}

func retryAfterSeconds(d time.Duration) int {
	n := int(math.Ceil(d.Seconds()))
	if n < 1 {
		return 1
	}
	return n
}
