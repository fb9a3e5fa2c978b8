package realm

import (
	"context"
	"testing"
)

func TestPortalSetterPublishesIntoStore(t *testing.T) {
	store, set := NewPortal[int]()

	var got []int
	store.Instantiate(func(v int) Resource {
		got = append(got, v)
		return Noop()
	})

	set(1).Instantiate(func(struct{}) Resource { return Noop() })
	set(2).Instantiate(func(struct{}) Resource { return Noop() })

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}
	if peeked := store.Peek(); len(peeked) != 2 {
		t.Fatalf("store.Peek() = %v, want two memoized values", peeked)
	}
}

func TestPortalLateSubscriberReceivesBacklog(t *testing.T) {
	store, set := NewPortal[string]()
	set("a").Instantiate(func(struct{}) Resource { return Noop() })

	var got []string
	store.Instantiate(func(v string) Resource {
		got = append(got, v)
		return Noop()
	})
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("got %v, want [a]", got)
	}
}

func TestPortalSetterReleaseRetractsItsValue(t *testing.T) {
	store, set := NewPortal[int]()
	res := set(7).Instantiate(func(struct{}) Resource { return Noop() })
	if peeked := store.Peek(); len(peeked) != 1 || peeked[0] != 7 {
		t.Fatalf("got %v, want [7]", peeked)
	}
	if err := res.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peeked := store.Peek(); len(peeked) != 0 {
		t.Fatalf("got %v, want empty: releasing the setter's Realm retracts the value it published", peeked)
	}
}
