package conversation

import (
	"context"
	"sync"
)

// SessionLocks hands out one exclusive section per session id. Different
// sessions never contend. Entries are dropped once no caller holds or waits
// on them, so the map stays proportional to in-flight sessions.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	ch   chan struct{} // holds one token while the section is owned
	refs int
}

// NewSessionLocks returns an empty lock table.
func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sessionLock)}
}

// Lock blocks until the caller owns sessionID's section or ctx is done, and
// returns the function that releases it. The release function is safe to
// call more than once.
func (l *SessionLocks) Lock(ctx context.Context, sessionID string) (unlock func(), err error) {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{ch: make(chan struct{}, 1)}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, sl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.ch
			l.release(sessionID, sl)
		})
	}, nil
}

func (l *SessionLocks) release(sessionID string, sl *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, sessionID)
	}
}

// held reports how many session entries are live.
func (l *SessionLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
