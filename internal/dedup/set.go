// Package dedup derives stable keys for webhook events and contact notes and
// tracks already-processed keys in bounded in-memory sets.
package dedup

import "sync"

// DefaultCapacity is the dedup window size before the set is cleared.
const DefaultCapacity = 1000

// Set is a bounded membership set. When it grows past capacity it is cleared
// wholesale: an approximate dedup window that trades a rare false negative
// after a long burst for a hard memory bound. Not an LRU, and deliberately
// not durable across restarts.
type Set struct {
	mu       sync.Mutex
	capacity int
	members  map[string]struct{}
}

// NewSet creates a set that clears itself once it exceeds capacity.
// A non-positive capacity falls back to DefaultCapacity.
func NewSet(capacity int) *Set {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Set{
		capacity: capacity,
		members:  make(map[string]struct{}),
	}
}

// Seen reports whether key was marked since the last clear.
func (s *Set) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[key]
	return ok
}

// Mark records key as processed. Call only after the corresponding external
// write succeeded, so a failed delivery can be retried.
func (s *Set) Mark(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[key] = struct{}{}
	if len(s.members) > s.capacity {
		s.members = make(map[string]struct{})
	}
}

// Len returns the current number of tracked keys.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}
