package realm

import (
	"context"
	"testing"
	"time"
)

func TestToRealmResolvesSynchronousUsePointsInline(t *testing.T) {
	body := ToRealm(func(s *Scope) int {
		a := Use(s, Pure(1))
		b := Use(s, Pure(2))
		return a + b
	})
	var got int
	body.Instantiate(func(v int) Resource {
		got = v
		return Noop()
	})
	if got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
}

func TestToRealmReplaysResolvedUsePointsFromHistory(t *testing.T) {
	instantiations := 0
	counted := NewBasic(func(obs Observer[int]) Resource {
		instantiations++
		return obs(7)
	})
	cell := NewComparableCell(0)

	body := ToRealm(func(s *Scope) int {
		base := Use(s, counted)
		tick := Use(s, cell)
		return base + tick.v
	})
	ch := make(chan int, 3)
	body.Instantiate(func(v int) Resource {
		ch <- v
		return Noop()
	})

	recv := func() int {
		select {
		case v := <-ch:
			return v
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for a published value")
			return -1
		}
	}

	if got := recv(); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}

	cell.Set(comparableBox[int]{v: 1})
	if got := recv(); got != 8 {
		t.Fatalf("got %d, want 8", got)
	}

	cell.Set(comparableBox[int]{v: 2})
	if got := recv(); got != 9 {
		t.Fatalf("got %d, want 9", got)
	}

	if instantiations != 1 {
		t.Fatalf("counted use-point instantiated %d times, want 1", instantiations)
	}
}

func TestToRealmSuspendsUntilAsyncValueArrives(t *testing.T) {
	body := ToRealm(func(s *Scope) int {
		v := UseEffect(s, func(ctx context.Context, addResource func(Resource)) (int, error) {
			return 99, nil
		})
		return v * 2
	})
	ch := make(chan int, 1)
	body.Instantiate(func(v int) Resource {
		ch <- v
		return Noop()
	})
	select {
	case v := <-ch:
		if v != 198 {
			t.Fatalf("got %d, want 198", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for async use-point")
	}
}

func TestToRealmReleaseTearsDownEveryUsePoint(t *testing.T) {
	var released []string
	track := func(label string) Realm[string] {
		return NewBasic(func(obs Observer[string]) Resource {
			r := obs(label)
			return Sequential(r, fromFunc(func(context.Context) error {
				released = append(released, label)
				return nil
			}))
		})
	}
	body := ToRealm(func(s *Scope) string {
		a := Use(s, track("a"))
		b := Use(s, track("b"))
		return a + b
	})
	res := body.Instantiate(func(string) Resource { return Noop() })
	if err := res.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(released) != 2 {
		t.Fatalf("got %v, want both use-points released", released)
	}
}
