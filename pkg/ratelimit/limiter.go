package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// RetryAfter is the advertised wait in whole seconds when the request
	// was rejected. Always positive on rejection.
	RetryAfter int
}

// Limiter applies the sliding-window admission algorithm over a Store.
//
// The check-then-act sequence for a given (route, IP) runs under a per-key
// mutex: two concurrent requests from the same IP serialize, so the window
// count can never be read stale across the append.
type Limiter struct {
	store *Store
	now   func() time.Time

	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

// NewLimiter creates a Limiter over the given store.
func NewLimiter(store *Store) *Limiter {
	return &Limiter{
		store: store,
		now:   time.Now,
		keys:  make(map[string]*sync.Mutex),
	}
}

// SetClock replaces the limiter's time source. Intended for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Store returns the underlying store.
func (l *Limiter) Store() *Store {
	return l.store
}

// keyLock returns the mutex serializing checks for one (route, IP) pair.
func (l *Limiter) keyLock(ip, path string) *sync.Mutex {
	key := path + "|" + ip
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.keys[key]
	if !ok {
		m = &sync.Mutex{}
		l.keys[key] = m
	}
	return m
}

// Check admits or rejects one request from ip against the route's policy.
// The route and the IP's record are registered lazily on first sight.
//
// Admission rules, in order:
//  1. an expired cooldown is cleared before anything is counted, so a
//     client regains access promptly;
//  2. only requests strictly newer than now-Window count toward the window;
//  3. the request that would be the Limit+1-th in the window trips the
//     limiter and starts the cooldown;
//  4. while the cooldown runs, requests are rejected with the remaining
//     wait and are not recorded as new attempts;
//  5. otherwise the request is recorded and admitted.
func (l *Limiter) Check(ip string, policy Policy) Decision {
	if _, ok := l.store.RoutePolicy(policy.Path); !ok {
		l.store.AddRoute(policy)
	}

	lock := l.keyLock(ip, policy.Path)
	lock.Lock()
	defer lock.Unlock()

	now := l.now()

	rec, ok := l.store.Record(ip, policy.Path)
	if !ok {
		rec = l.store.AddRecord(ip, policy.Path)
	}

	if rec.Limited && !now.Before(rec.RetryAt) {
		rec = l.store.ClearLimit(ip, policy.Path)
	}

	windowStart := now.Add(-policy.Window)
	count := 0
	for _, req := range rec.Requests {
		if req.Timestamp.After(windowStart) {
			count++
		}
	}

	if count+1 > policy.Limit && !rec.Limited {
		rec = l.store.SetLimit(ip, policy.Path, now)
	}

	if rec.Limited && now.Before(rec.RetryAt) {
		remaining := rec.RetryAt.Sub(now)
		return Decision{RetryAfter: int(remaining.Milliseconds()/1000) + 1}
	}

	l.store.AddRequest(ip, policy.Path, now)
	return Decision{Allowed: true}
}
