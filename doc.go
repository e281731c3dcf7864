// Package lazy provides lazy, memoized field accessors: a field's value is
// computed at most once per instance (or once per validity window) by a
// bound producer function and then served from per-instance storage.
//
// Four field kinds share one shape (bind a producer to a field name, read
// it through Get) and differ along two axes: storage strategy and locking.
//
//   - [Field]: computes on first read and stores the result where it
//     shadows the producer. No lock, no invalidation.
//   - [LockedField]: like Field, but the first computation runs under a
//     mutex so it happens at most once under contention.
//   - [ExpiringField]: keeps (value, computed-at) entries in a side table
//     and revalidates against a TTL on every read. Supports Invalidate.
//   - [LockedExpiringField]: like ExpiringField, but every read runs under
//     a mutex, so exactly one computation happens per expiry window.
//
// [SingleflightField] is a middle ground for the expiring strategy: hits
// are not serialized, but concurrent recomputations collapse into one
// producer call.
//
// # Owning types
//
// An owning type hosts per-instance state by embedding a [Store]; fields
// are bound once, at the package or type level, and shared by every
// instance:
//
//	type Report struct {
//		lazy.Store
//		Rows []Row
//	}
//
//	var reportTotal = lazy.NewExpiring("total", func(r *Report) (int, error) {
//		return sumRows(r.Rows), nil
//	}, lazy.WithTTL(time.Minute))
//
//	func (r *Report) Total() (int, error) { return reportTotal.Get(r) }
//
// Two instances sharing a binding keep fully independent cached state.
//
// # Expiry
//
// Expiry is lazy: nothing runs in the background, and a stale value is
// only discovered, and recomputed, when the next read arrives after the
// TTL window closes. Without [WithTTL], values never expire on their own
// but can still be dropped with Invalidate.
//
// # Errors
//
// A producer error propagates to the Get caller and nothing is cached, so
// the field never holds a half-formed value and the next Get retries.
package lazy
