// Package ratelimit bounds the request rate per (route, client IP) using a
// sliding time window plus a cooldown penalty once the window is exceeded.
//
// The package is split into a Store, which owns the per-route policies and
// per-IP records, and a Limiter, which applies the admission algorithm on
// top of the store's primitives. The store is an explicit value constructed
// once per server and injected into the pipeline, so tests get isolated
// state instead of sharing a process-wide map.
package ratelimit

import (
	"sync"
	"time"
)

// Policy is the per-route rate limit configuration. Immutable once
// registered; one instance per distinct route path.
type Policy struct {
	// Path is the route identity and the unique registration key.
	Path string

	// Window is the length of the sliding window.
	Window time.Duration

	// Limit is the maximum number of requests admitted per window.
	Limit int

	// Cooldown is how long an IP stays locked out once limited.
	Cooldown time.Duration
}

// Request is a single recorded request. Insertion order is chronological.
type Request struct {
	Timestamp time.Time
}

// Record is the mutable per-(route, IP) state.
type Record struct {
	// Limited reports whether the IP is currently locked out.
	Limited bool

	// RetryAt is when the lockout ends. Zero when not limited.
	RetryAt time.Time

	// Requests are the recorded request timestamps. Entries older than the
	// window are filtered at read time rather than pruned eagerly.
	Requests []Request
}

// clone returns a snapshot of the record. Every store accessor hands out
// clones so callers can never alias the store's internal state.
func (r *Record) clone() Record {
	out := Record{Limited: r.Limited, RetryAt: r.RetryAt}
	if len(r.Requests) > 0 {
		out.Requests = make([]Request, len(r.Requests))
		copy(out.Requests, r.Requests)
	}
	return out
}

// RecordPatch describes a partial update to a record. Nil fields are left
// unchanged.
type RecordPatch struct {
	Limited  *bool
	RetryAt  *time.Time
	Requests *[]Request
}

// routeState pairs a route's policy with its per-IP records.
type routeState struct {
	policy  Policy
	records map[string]*Record
}

// Store maps route paths to their policy and per-IP records. All operations
// are total: lookups on unknown routes or IPs return zero values instead of
// errors. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	routes map[string]*routeState
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{routes: make(map[string]*routeState)}
}

// AddRoute registers a route's policy, overwriting any prior registration
// for that path and resetting its IP records.
func (s *Store) AddRoute(policy Policy) Policy {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.routes[policy.Path] = &routeState{
		policy:  policy,
		records: make(map[string]*Record),
	}
	return policy
}

// RoutePolicy looks up the registered policy for a path.
func (s *Store) RoutePolicy(path string) (Policy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs, ok := s.routes[path]
	if !ok {
		return Policy{}, false
	}
	return rs.policy, true
}

// Record looks up the stored record for an (IP, route) pair. The second
// return is false when the route or IP is unknown.
func (s *Store) Record(ip, path string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.lookup(ip, path)
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// AddRecord creates a default record for the (IP, route) pair if absent and
// returns it. A fresh record value is allocated on every create so state is
// never shared between IPs. Idempotent: an existing record is returned
// unchanged.
func (s *Store) AddRecord(ip, path string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.routes[path]
	if !ok {
		return Record{}
	}
	if rec, ok := rs.records[ip]; ok {
		return rec.clone()
	}

	rec := &Record{}
	rs.records[ip] = rec
	return rec.clone()
}

// EditRecord merges the patch onto the existing record, creating the record
// first if absent, and returns the result.
func (s *Store) EditRecord(ip, path string, patch RecordPatch) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.routes[path]
	if !ok {
		return Record{}
	}
	rec, ok := rs.records[ip]
	if !ok {
		rec = &Record{}
		rs.records[ip] = rec
	}

	if patch.Limited != nil {
		rec.Limited = *patch.Limited
	}
	if patch.RetryAt != nil {
		rec.RetryAt = *patch.RetryAt
	}
	if patch.Requests != nil {
		rec.Requests = append([]Request(nil), (*patch.Requests)...)
	}
	return rec.clone()
}

// IsLimited reads the current limited flag without side effects.
func (s *Store) IsLimited(ip, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.lookup(ip, path)
	return ok && rec.Limited
}

// AddRequest appends a request at the given timestamp, creating the record
// if needed, and returns the updated request list.
func (s *Store) AddRequest(ip, path string, at time.Time) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.routes[path]
	if !ok {
		return nil
	}
	rec, ok := rs.records[ip]
	if !ok {
		rec = &Record{}
		rs.records[ip] = rec
	}

	rec.Requests = append(rec.Requests, Request{Timestamp: at})

	out := make([]Request, len(rec.Requests))
	copy(out, rec.Requests)
	return out
}

// SetLimit flags the IP as limited and starts the cooldown from now. No-op
// when the IP is already limited: the existing record is returned and the
// original retry timestamp keeps counting.
func (s *Store) SetLimit(ip, path string, now time.Time) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.routes[path]
	if !ok {
		return Record{}
	}
	rec, ok := rs.records[ip]
	if !ok {
		rec = &Record{}
		rs.records[ip] = rec
	}

	if !rec.Limited {
		rec.Limited = true
		rec.RetryAt = now.Add(rs.policy.Cooldown)
	}
	return rec.clone()
}

// ClearLimit resets the IP's record to its unlimited default.
func (s *Store) ClearLimit(ip, path string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.routes[path]
	if !ok {
		return Record{}
	}
	rec, ok := rs.records[ip]
	if !ok {
		rec = &Record{}
		rs.records[ip] = rec
	}

	rec.Limited = false
	rec.RetryAt = time.Time{}
	rec.Requests = nil
	return rec.clone()
}

// Sweep drops records that have been idle longer than idleFor at the given
// time. A record is idle when it is not limited and its newest request is
// older than the horizon. Returns the number of records dropped.
func (s *Store) Sweep(now time.Time, idleFor time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	horizon := now.Add(-idleFor)
	dropped := 0
	for _, rs := range s.routes {
		for ip, rec := range rs.records {
			if rec.Limited {
				continue
			}
			if n := len(rec.Requests); n > 0 && rec.Requests[n-1].Timestamp.After(horizon) {
				continue
			}
			delete(rs.records, ip)
			dropped++
		}
	}
	return dropped
}

// lookup must be called with at least a read lock held.
func (s *Store) lookup(ip, path string) (*Record, bool) {
	rs, ok := s.routes[path]
	if !ok {
		return nil, false
	}
	rec, ok := rs.records[ip]
	return rec, ok
}
