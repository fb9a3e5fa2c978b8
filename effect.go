package realm

import (
	"context"
	"log/slog"
)

// EffectMaker produces a single value for an EffectRealm. addResource lets
// the maker attach a Resource of its own (a timer, a subscription, an
// open file) that must be released when the observation that triggered
// this maker is released, even if the maker is still running. Returning a
// non-nil error aborts this invocation: no value is published.
type EffectMaker[T any] func(ctx context.Context, addResource func(Resource)) (T, error)

// EffectErrorHandler is called whenever an EffectMaker returns an error
// before its observation has been released; errors after release are
// discarded.
// The default implementation logs through slog.Default and swallows the
// error, matching the "effects fail silently from the caller's point of
// view, but are never silent to an operator" contract: a caller that wants
// different behavior replaces this variable.
var EffectErrorHandler func(error) = func(err error) {
	slog.Default().Error("realm: effect failed", "error", err)
}

// NewEffect returns a Realm that, on every Instantiate, runs maker exactly
// once in its own goroutine. If maker succeeds before the observation is
// released, its value is published through the Observer; if the
// observation is released first, maker's context is canceled and its
// eventual result (success or failure) is discarded.
func NewEffect[T any](maker EffectMaker[T]) Realm[T] {
	return funcRealm[T](func(obs Observer[T]) Resource {
		ctx, cancel := context.WithCancel(context.Background())
		live := newGrowingResource()

		done := make(chan struct{})
		go func() {
			defer close(done)
			v, err := maker(ctx, func(r Resource) { live.add(r) })
			if err != nil {
				if ctx.Err() == nil {
					EffectErrorHandler(err)
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			live.add(obs(v))
		}()

		return fromFunc(func(relCtx context.Context) error {
			cancel()
			<-done
			return live.Release(relCtx)
		})
	})
}
