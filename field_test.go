package lazy

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// widget is a minimal owning type used across the package tests.
type widget struct {
	Store
	id int
}

var (
	_ Getter[*widget, int]             = (*Field[*widget, int])(nil)
	_ Getter[*widget, int]             = (*LockedField[*widget, int])(nil)
	_ InvalidatingGetter[*widget, int] = (*ExpiringField[*widget, int])(nil)
	_ InvalidatingGetter[*widget, int] = (*LockedExpiringField[*widget, int])(nil)
	_ InvalidatingGetter[*widget, int] = (*SingleflightField[*widget, int])(nil)
)

func TestField_Get(t *testing.T) {
	tests := map[string]struct {
		reads     int
		wantCalls int32
	}{
		"single read": {
			reads:     1,
			wantCalls: 1,
		},
		"repeated reads compute once": {
			reads:     10,
			wantCalls: 1,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			var calls atomic.Int32
			field := New("serial", func(w *widget) (string, error) {
				calls.Add(1)
				return fmt.Sprintf("w-%d", w.id), nil
			})

			w := &widget{id: 7}
			for i := 0; i < tc.reads; i++ {
				got, err := field.Get(w)
				r.NoError(err)
				r.Equal("w-7", got)
			}
			r.Equal(tc.wantCalls, calls.Load())
		})
	}
}

func TestField_ProducerError(t *testing.T) {
	r := require.New(t)

	fail := true
	var calls int
	field := New("flaky", func(w *widget) (int, error) {
		calls++
		if fail {
			return 0, fmt.Errorf("producer error")
		}
		return 42, nil
	})

	w := &widget{}

	// a failed computation stores nothing
	_, err := field.Get(w)
	r.Error(err)
	r.Equal(1, calls)

	// the next read retries the producer from scratch
	fail = false
	got, err := field.Get(w)
	r.NoError(err)
	r.Equal(42, got)
	r.Equal(2, calls)

	// and the successful result is now stored
	got, err = field.Get(w)
	r.NoError(err)
	r.Equal(42, got)
	r.Equal(2, calls)
}

func TestField_IndependentInstances(t *testing.T) {
	r := require.New(t)

	var calls atomic.Int32
	field := New("serial", func(w *widget) (int, error) {
		calls.Add(1)
		return w.id * 10, nil
	})

	a := &widget{id: 1}
	b := &widget{id: 2}

	got, err := field.Get(a)
	r.NoError(err)
	r.Equal(10, got)

	got, err = field.Get(b)
	r.NoError(err)
	r.Equal(20, got)

	// one computation per instance, and neither sees the other's value
	r.Equal(int32(2), calls.Load())

	got, err = field.Get(a)
	r.NoError(err)
	r.Equal(10, got)
	r.Equal(int32(2), calls.Load())
}

func TestField_DiscardResets(t *testing.T) {
	r := require.New(t)

	next := 1
	field := New("counter", func(w *widget) (int, error) {
		v := next
		next++
		return v, nil
	})

	w := &widget{}

	got, err := field.Get(w)
	r.NoError(err)
	r.Equal(1, got)

	// the field exposes no invalidation; the owner clears its own entry
	w.Discard("counter")

	got, err = field.Get(w)
	r.NoError(err)
	r.Equal(2, got)

	// discarding a name that was never stored is a no-op
	w.Discard("no-such-field")
	got, err = field.Get(w)
	r.NoError(err)
	r.Equal(2, got)
}

func TestLockedField_Get(t *testing.T) {
	r := require.New(t)

	var calls atomic.Int32
	field := NewLocked("serial", func(w *widget) (string, error) {
		calls.Add(1)
		return fmt.Sprintf("w-%d", w.id), nil
	})

	w := &widget{id: 3}
	for i := 0; i < 5; i++ {
		got, err := field.Get(w)
		r.NoError(err)
		r.Equal("w-3", got)
	}
	r.Equal(int32(1), calls.Load())
}

func TestLockedField_ConcurrentFirstRead(t *testing.T) {
	r := require.New(t)

	const goroutines = 100

	var calls atomic.Int32
	field := NewLocked("serial", func(w *widget) (int, error) {
		calls.Add(1)
		return 42, nil
	})

	w := &widget{}
	var wg sync.WaitGroup
	results := make([]int, goroutines)

	// all goroutines race the first read of the same instance
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			got, err := field.Get(w)
			r.NoError(err)
			results[idx] = got
		}(i)
	}
	wg.Wait()

	// the producer ran exactly once
	r.Equal(int32(1), calls.Load(), "producer should run exactly once")

	// and every caller observed the same value
	for i, got := range results {
		r.Equal(42, got, "goroutine %d got wrong result", i)
	}
}

func TestLockedField_ProducerError(t *testing.T) {
	r := require.New(t)

	fail := true
	field := NewLocked("flaky", func(w *widget) (int, error) {
		if fail {
			return 0, fmt.Errorf("producer error")
		}
		return 7, nil
	})

	w := &widget{}
	_, err := field.Get(w)
	r.Error(err)

	fail = false
	got, err := field.Get(w)
	r.NoError(err)
	r.Equal(7, got)
}

func TestLockedField_Stripes(t *testing.T) {
	r := require.New(t)

	const instances = 32
	const readers = 8

	var calls atomic.Int32
	field := NewLocked("serial", func(w *widget) (int, error) {
		calls.Add(1)
		return w.id, nil
	}, WithLockStripes(8))

	widgets := make([]*widget, instances)
	for i := range widgets {
		widgets[i] = &widget{id: i}
	}

	var wg sync.WaitGroup
	for _, w := range widgets {
		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func(w *widget) {
				defer wg.Done()
				got, err := field.Get(w)
				r.NoError(err)
				r.Equal(w.id, got)
			}(w)
		}
	}
	wg.Wait()

	// striping spreads contention but keeps exactly-once per instance
	r.Equal(int32(instances), calls.Load())
}
