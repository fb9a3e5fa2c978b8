package realm

import (
	"context"
	"errors"
	"testing"
)

func TestNoopReleaseIsNil(t *testing.T) {
	if err := Noop().Release(context.Background()); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}

func TestOnceResourceIdempotent(t *testing.T) {
	calls := 0
	r := fromFunc(func(context.Context) error {
		calls++
		return nil
	})
	_ = r.Release(context.Background())
	_ = r.Release(context.Background())
	_ = r.Release(context.Background())
	if calls != 1 {
		t.Fatalf("release func called %d times, want 1", calls)
	}
}

func TestSequentialReleasesEveryItemEvenAfterError(t *testing.T) {
	var released []int
	mk := func(id int, fail bool) Resource {
		return fromFunc(func(context.Context) error {
			released = append(released, id)
			if fail {
				return errors.New("boom")
			}
			return nil
		})
	}
	r := Sequential(mk(1, false), mk(2, true), mk(3, false))
	err := r.Release(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if len(released) != 3 {
		t.Fatalf("got %v, want all three released", released)
	}
}

func TestParallelAggregatesAllErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	r := Parallel(
		fromFunc(func(context.Context) error { return errA }),
		fromFunc(func(context.Context) error { return nil }),
		fromFunc(func(context.Context) error { return errB }),
	)
	err := r.Release(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("got %v, want both errA and errB joined", err)
	}
}

func TestGrowingResourceReleasesInLIFOOrder(t *testing.T) {
	var order []int
	g := newGrowingResource()
	for i := 1; i <= 3; i++ {
		i := i
		g.add(fromFunc(func(context.Context) error {
			order = append(order, i)
			return nil
		}))
	}
	if err := g.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestGrowingResourceAddAfterReleaseIsNoop(t *testing.T) {
	g := newGrowingResource()
	_ = g.Release(context.Background())
	calls := 0
	g.add(fromFunc(func(context.Context) error {
		calls++
		return nil
	}))
	if calls != 0 {
		t.Fatalf("resource added after release should never run")
	}
}
