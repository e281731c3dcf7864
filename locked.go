package lazy

import (
	"fmt"
	"hash/maphash"
	"sync"
	"time"
)

// locker hands out the mutex guarding a given instance. With one stripe it
// is the classic one-lock-per-field-binding design; with more, instances
// are spread across stripes by hashing their store's identity, so
// unrelated instances stop contending while any one instance still always
// gets the same mutex.
type locker struct {
	seed maphash.Seed
	mus  []sync.Mutex
}

func newLocker(stripes int) *locker {
	if stripes < 1 {
		stripes = 1
	}
	return &locker{
		seed: maphash.MakeSeed(),
		mus:  make([]sync.Mutex, stripes),
	}
}

// mutexFor returns the mutex guarding the instance that owns s.
func (l *locker) mutexFor(s *Store) *sync.Mutex {
	if len(l.mus) == 1 {
		return &l.mus[0]
	}

	var h maphash.Hash
	h.SetSeed(l.seed)
	h.WriteString(fmt.Sprintf("%p", s))
	return &l.mus[h.Sum64()%uint64(len(l.mus))]
}

// LockedExpiringField has the same read and invalidate contract as
// [ExpiringField], but every Get (cache hits included) runs under the
// field's mutex. For a given instance the producer therefore runs exactly
// once per expiry window, with no recomputation storm after the TTL
// elapses under contention, and all reads and recomputations are strictly
// ordered. The price is that hits pay for lock acquisition; when hit
// throughput matters more than strict ordering, see [SingleflightField].
//
// As with [LockedField], the lock belongs to the field binding and is
// shared by all instances unless [WithLockStripes] spreads it out. A hung
// producer holds the lock and stalls every caller of this field.
type LockedExpiringField[O Owner, V any] struct {
	inner *ExpiringField[O, V]
	locks *locker
}

// NewLockedExpiring binds a producer to a field name with side-table
// storage and full locking. [WithTTL] and [WithLockStripes] are honored.
func NewLockedExpiring[O Owner, V any](name string, produce func(O) (V, error), opts ...Option) *LockedExpiringField[O, V] {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	return &LockedExpiringField[O, V]{
		inner: NewExpiring[O, V](name, produce, WithTTL(opt.ttl)),
		locks: newLocker(opt.stripes),
	}
}

// Name returns the field name the producer was bound to.
func (f *LockedExpiringField[O, V]) Name() string { return f.inner.Name() }

// TTL returns how long a computed value stays valid. Zero or less means
// values never expire.
func (f *LockedExpiringField[O, V]) TTL() time.Duration { return f.inner.TTL() }

// SetTimeNowFunc replaces the function used to get the current time.
// This is primarily useful for testing. Passing nil resets to time.Now.
func (f *LockedExpiringField[O, V]) SetTimeNowFunc(fn func() time.Time) {
	f.inner.SetTimeNowFunc(fn)
}

// Get returns the cached value for o, recomputing under the field's lock
// when the value is absent or expired. See [ExpiringField.Get] for the
// underlying algorithm.
func (f *LockedExpiringField[O, V]) Get(o O) (V, error) {
	mu := f.locks.mutexFor(o.FieldStore())
	mu.Lock()
	defer mu.Unlock()

	return f.inner.Get(o)
}

// Invalidate drops the cached value for o. It takes the same lock as Get,
// so an invalidation orders strictly against concurrent reads: once it
// returns, any Get already past the lock has either observed the old entry
// or will recompute. Invalidating absent state is a no-op.
func (f *LockedExpiringField[O, V]) Invalidate(o O) {
	mu := f.locks.mutexFor(o.FieldStore())
	mu.Lock()
	defer mu.Unlock()

	f.inner.Invalidate(o)
}
