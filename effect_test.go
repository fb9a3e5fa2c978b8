package realm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEffectPublishesMakerResult(t *testing.T) {
	r := NewEffect(func(ctx context.Context, addResource func(Resource)) (int, error) {
		return 42, nil
	})
	ch := make(chan int, 1)
	res := r.Instantiate(func(v int) Resource {
		ch <- v
		return Noop()
	})
	select {
	case v := <-ch:
		if v != 42 {
			t.Fatalf("got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for effect")
	}
	if err := res.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEffectErrorNeverPublishes(t *testing.T) {
	prev := EffectErrorHandler
	handled := make(chan error, 1)
	EffectErrorHandler = func(err error) { handled <- err }
	defer func() { EffectErrorHandler = prev }()

	boom := errors.New("boom")
	r := NewEffect(func(ctx context.Context, addResource func(Resource)) (int, error) {
		return 0, boom
	})
	published := false
	res := r.Instantiate(func(int) Resource {
		published = true
		return Noop()
	})

	select {
	case err := <-handled:
		if !errors.Is(err, boom) {
			t.Fatalf("got %v, want %v", err, boom)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for error handler")
	}
	if published {
		t.Fatalf("a failing maker must never publish a value")
	}
	_ = res.Release(context.Background())
}

func TestEffectReleaseCancelsContext(t *testing.T) {
	canceled := make(chan struct{}, 1)
	r := NewEffect(func(ctx context.Context, addResource func(Resource)) (int, error) {
		<-ctx.Done()
		canceled <- struct{}{}
		return 0, ctx.Err()
	})
	res := r.Instantiate(func(int) Resource { return Noop() })
	if err := res.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatalf("Release must cancel the maker's context")
	}
}
