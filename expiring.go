package lazy

import "time"

// options holds optional parameters for field constructors.
type options struct {
	ttl     time.Duration
	stripes int
}

// Option is a functional option for [NewLocked], [NewExpiring],
// [NewLockedExpiring], and [NewSingleflight].
type Option func(*options)

// WithTTL bounds how long a computed value stays valid. After ttl elapses
// the next read recomputes. A zero or negative ttl means values never
// expire, which is also the default. The shadowing constructors ignore
// this option.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithLockStripes makes a locked field hold n mutexes instead of one and
// pick one per owning instance, reducing contention between unrelated
// instances that share the field binding. An instance always maps to the
// same stripe, so the per-instance ordering guarantees are unchanged.
// Values of n below two leave the single shared mutex in place. The
// unlocked constructors ignore this option.
func WithLockStripes(n int) Option {
	return func(o *options) {
		o.stripes = n
	}
}

// ExpiringField is a lazy field whose cached value can go stale. Values are
// kept in the instance's side table together with their computation time,
// and every read revalidates against the field's TTL, so the field's logic
// runs on every access, unlike [Field], whose stored values bypass it.
// Expiry is lazy: a stale value sits in the table until a read discovers it
// and recomputes.
//
// ExpiringField takes no lock of its own. Concurrent readers past expiry
// may each run the producer and overwrite one another's entry; the last
// write wins and all of it is memory-safe. Use [LockedExpiringField] or
// [SingleflightField] when the producer must run exactly once per window.
type ExpiringField[O Owner, V any] struct {
	name    string
	ttl     time.Duration
	produce func(O) (V, error)
	timeNow func() time.Time // for testing
}

// NewExpiring binds a producer to a field name with side-table storage.
// Without [WithTTL], values never expire but can still be dropped with
// [ExpiringField.Invalidate].
func NewExpiring[O Owner, V any](name string, produce func(O) (V, error), opts ...Option) *ExpiringField[O, V] {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	return &ExpiringField[O, V]{
		name:    name,
		ttl:     opt.ttl,
		produce: produce,
		timeNow: time.Now,
	}
}

// Name returns the field name the producer was bound to.
func (f *ExpiringField[O, V]) Name() string { return f.name }

// TTL returns how long a computed value stays valid. Zero or less means
// values never expire.
func (f *ExpiringField[O, V]) TTL() time.Duration { return f.ttl }

// SetTimeNowFunc replaces the function used to get the current time.
// This is primarily useful for testing. Passing nil resets to time.Now.
func (f *ExpiringField[O, V]) SetTimeNowFunc(fn func() time.Time) {
	if fn == nil {
		fn = time.Now
	}
	f.timeNow = fn
}

// Get returns the cached value for o if one is present and still valid.
// Otherwise it runs the producer, stores the result with the current time
// (superseding any expired entry), and returns it. A producer error is
// returned as-is and nothing is stored, so the next Get retries.
func (f *ExpiringField[O, V]) Get(o O) (V, error) {
	s := o.FieldStore()
	if e, ok := s.entryFor(f.name); ok && !e.expired(f.timeNow(), f.ttl) {
		return e.value.(V), nil
	}

	v, err := f.produce(o)
	if err != nil {
		var zero V
		return zero, err
	}

	s.setEntry(f.name, entry{value: v, computedAt: f.timeNow()})
	return v, nil
}

// Invalidate drops the cached value for o, so the next Get runs the
// producer again. Invalidating a field that was never computed, or an
// instance whose table was never created, is a no-op. It never fails.
func (f *ExpiringField[O, V]) Invalidate(o O) {
	o.FieldStore().removeEntry(f.name)
}
