package lazy

import (
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// SingleflightField has the same read and invalidate contract as
// [ExpiringField], but concurrent recomputations for the same instance are
// collapsed: when several readers find the value absent or expired at once,
// the producer runs once and all of them receive its result. Unlike
// [LockedExpiringField], cache hits are not serialized (only the
// computation is deduplicated), so hit throughput stays close to the
// unguarded field's.
//
// The deduplication only covers in-flight calls; once a value is cached,
// reads return it without entering the flight group.
type SingleflightField[O Owner, V any] struct {
	inner *ExpiringField[O, V]
	group singleflight.Group
}

// NewSingleflight binds a producer to a field name with side-table storage
// and deduplicated recomputation. [WithTTL] is the only option honored here.
func NewSingleflight[O Owner, V any](name string, produce func(O) (V, error), opts ...Option) *SingleflightField[O, V] {
	return &SingleflightField[O, V]{
		inner: NewExpiring[O, V](name, produce, opts...),
	}
}

// Name returns the field name the producer was bound to.
func (f *SingleflightField[O, V]) Name() string { return f.inner.Name() }

// TTL returns how long a computed value stays valid. Zero or less means
// values never expire.
func (f *SingleflightField[O, V]) TTL() time.Duration { return f.inner.TTL() }

// SetTimeNowFunc replaces the function used to get the current time.
// This is primarily useful for testing. Passing nil resets to time.Now.
func (f *SingleflightField[O, V]) SetTimeNowFunc(fn func() time.Time) {
	f.inner.SetTimeNowFunc(fn)
}

// Get returns the cached value for o if one is present and still valid.
// Otherwise it joins the in-flight computation for this instance, or starts
// one if none exists. A producer error is returned to every joined caller
// and nothing is stored.
func (f *SingleflightField[O, V]) Get(o O) (V, error) {
	s := o.FieldStore()

	// fast path: a valid entry needs no flight
	if e, ok := s.entryFor(f.inner.name); ok && !e.expired(f.inner.timeNow(), f.inner.ttl) {
		return e.value.(V), nil
	}

	// one flight per owning instance; the store pointer identifies it
	key := fmt.Sprintf("%p", s)
	v, err, _ := f.group.Do(key, func() (any, error) {
		// re-check inside the flight in case another caller just stored it
		return f.inner.Get(o)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Invalidate drops the cached value for o; the next Get recomputes.
// It does not join the flight group, so a computation already in flight
// may repopulate the entry after Invalidate returns. Invalidating absent
// state is a no-op.
func (f *SingleflightField[O, V]) Invalidate(o O) {
	f.inner.Invalidate(o)
}
