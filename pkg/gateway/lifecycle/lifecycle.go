// Package lifecycle holds process state shared by the gateway handlers
// during graceful shutdown.
package lifecycle

import "sync/atomic"

// Lifecycle tracks draining and the number of conversational requests in
// flight. The zero value is ready to use and a nil *Lifecycle never drains.
type Lifecycle struct {
	draining atomic.Bool
	inFlight atomic.Int64
}

func (l *Lifecycle) SetDraining(draining bool) {
	if l == nil {
		return
	}
	l.draining.Store(draining)
}

func (l *Lifecycle) IsDraining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}

// Begin marks one request as in flight. The returned func ends it and is
// safe to call more than once.
func (l *Lifecycle) Begin() (end func()) {
	if l == nil {
		return func() {}
	}
	l.inFlight.Add(1)
	var done atomic.Bool
	return func() {
		if done.CompareAndSwap(false, true) {
			l.inFlight.Add(-1)
		}
	}
}

// InFlight reports how many requests have begun and not ended.
func (l *Lifecycle) InFlight() int64 {
	if l == nil {
		return 0
	}
	return l.inFlight.Load()
}
