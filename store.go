package lazy

import (
	"sync"
	"time"
)

// Owner is implemented by any type that hosts lazy fields. Embedding a
// [Store] in the owning struct satisfies it automatically:
//
//	type Report struct {
//		lazy.Store
//		// ...
//	}
type Owner interface {
	FieldStore() *Store
}

// Getter is the read contract shared by every field kind in this package.
type Getter[O Owner, V any] interface {
	// Get returns the cached value for o, computing it first if needed.
	Get(o O) (V, error)
}

// InvalidatingGetter is implemented by the expiring field kinds, which
// support dropping a cached value so the next Get recomputes it.
type InvalidatingGetter[O Owner, V any] interface {
	Getter[O, V]
	Invalidate(o O)
}

// entry is a cached value together with the time it was computed.
// Entries are immutable; a recomputation stores a fresh entry in its place.
type entry struct {
	value      any
	computedAt time.Time
}

// expired reports whether the entry's value has outlived ttl at time now.
// A ttl of zero or less means the entry never expires.
func (e entry) expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(e.computedAt) > ttl
}

// Store holds the per-instance state for all lazy fields of one owning
// instance. Embed it by value; the zero Store is ready for use and its
// internal maps are created on first write.
//
// Two tables live here, one per storage strategy:
//
//   - values: results stored once by [Field] and [LockedField]. A stored
//     value shadows the producer, so later reads never reach it again.
//   - entries: timestamped results managed by the expiring field kinds,
//     which revalidate on every read.
//
// A Store's maps are guarded internally, so concurrent access through any
// mix of fields is memory-safe. Field names must be unique within an
// owning type; both tables are keyed by name.
type Store struct {
	mu      sync.RWMutex
	values  map[string]any
	entries map[string]entry
}

// FieldStore returns the store itself. It exists so that embedding a Store
// satisfies [Owner] through method promotion.
func (s *Store) FieldStore() *Store { return s }

// Discard removes a value stored by a [Field] or [LockedField], so the next
// read through that field runs its producer again. It is the owner-level
// counterpart to [ExpiringField.Invalidate]: the shadowing fields expose no
// reset of their own. Discarding a name that was never stored is a no-op.
func (s *Store) Discard(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, name)
}

// value returns the shadowed value stored under name, if any.
func (s *Store) value(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[name]
	return v, ok
}

// setValue stores a shadowed value under name, overwriting any previous one.
func (s *Store) setValue(name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[name] = v
}

// setValueIfAbsent stores v under name unless a value is already present,
// and returns the value that ended up stored. Used by [LockedField] so the
// first stored value wins even if an unguarded writer raced it.
func (s *Store) setValueIfAbsent(name string, v any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.values[name]; ok {
		return existing
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[name] = v
	return v
}

// entryFor returns the timestamped entry stored under name, if any.
func (s *Store) entryFor(name string) (entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	return e, ok
}

// setEntry stores a timestamped entry under name, superseding any previous one.
func (s *Store) setEntry(name string, e entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries == nil {
		s.entries = make(map[string]entry)
	}
	s.entries[name] = e
}

// removeEntry deletes the entry stored under name. Removing a missing entry,
// or removing from a store whose table was never created, is a no-op.
func (s *Store) removeEntry(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, name)
}
