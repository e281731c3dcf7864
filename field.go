package lazy

// Field is the baseline lazy field: its producer runs on the first read for
// a given instance and the result is stored in the instance's namespace,
// where it shadows the producer for every later read. There is no
// invalidation through the field; an owner that wants a recomputation calls
// [Store.Discard] directly.
//
// Field takes no lock. Concurrent first reads of the same instance may each
// run the producer; the stores are memory-safe and the last one wins. Use
// [LockedField] when the producer must run at most once under contention.
type Field[O Owner, V any] struct {
	name    string
	produce func(O) (V, error)
}

// New binds a producer to a field name. The returned Field is shared by all
// instances of the owning type; per-instance state lives in each instance's
// [Store]. Names must be unique within an owning type.
func New[O Owner, V any](name string, produce func(O) (V, error)) *Field[O, V] {
	return &Field[O, V]{name: name, produce: produce}
}

// Name returns the field name the producer was bound to.
func (f *Field[O, V]) Name() string { return f.name }

// Get returns the value stored for o, running the producer first if no
// value has been stored yet. A producer error is returned as-is and nothing
// is stored, so the next Get retries from scratch.
func (f *Field[O, V]) Get(o O) (V, error) {
	s := o.FieldStore()
	if v, ok := s.value(f.name); ok {
		return v.(V), nil
	}

	v, err := f.produce(o)
	if err != nil {
		var zero V
		return zero, err
	}

	s.setValue(f.name, v)
	return v, nil
}

// LockedField has the same contract and storage as [Field], but the whole
// check-then-produce-then-store sequence runs under a mutex, so the
// producer runs at most once per instance even under concurrent first
// reads. Once a value is stored it shadows the producer, and later reads
// return before touching the lock.
//
// The lock belongs to the field binding, not to each instance: by default
// all instances read through one mutex. [WithLockStripes] spreads that
// contention across several mutexes, picked per instance, without changing
// the per-instance guarantee.
type LockedField[O Owner, V any] struct {
	name    string
	produce func(O) (V, error)
	locks   *locker
}

// NewLocked binds a producer to a field name with first-read locking.
// [WithLockStripes] is the only option honored here.
func NewLocked[O Owner, V any](name string, produce func(O) (V, error), opts ...Option) *LockedField[O, V] {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	return &LockedField[O, V]{
		name:    name,
		produce: produce,
		locks:   newLocker(opt.stripes),
	}
}

// Name returns the field name the producer was bound to.
func (f *LockedField[O, V]) Name() string { return f.name }

// Get returns the value stored for o, running the producer under the
// field's lock if no value has been stored yet. All waiters observe the
// value stored by whichever caller computed first.
//
// A hung producer holds the lock and stalls every other first read through
// this field; producers are assumed to complete.
func (f *LockedField[O, V]) Get(o O) (V, error) {
	s := o.FieldStore()

	// stored values shadow the producer, so steady-state reads skip the lock
	if v, ok := s.value(f.name); ok {
		return v.(V), nil
	}

	mu := f.locks.mutexFor(s)
	mu.Lock()
	defer mu.Unlock()

	// the value may have been stored while we waited for the lock
	if v, ok := s.value(f.name); ok {
		return v.(V), nil
	}

	v, err := f.produce(o)
	if err != nil {
		var zero V
		return zero, err
	}

	return s.setValueIfAbsent(f.name, v).(V), nil
}
