package realm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"code.realmrt.dev/realm/cont"
)

// Resource is a scoped release handle. Release must be idempotent: a
// second and later call is a no-op that returns nil. After Release's
// returned error has been observed, no Realm that produced this Resource
// may publish further values through it.
type Resource interface {
	Release(ctx context.Context) error
}

// noopResource never does anything on release.
type noopResource struct{}

func (noopResource) Release(context.Context) error { return nil }

// Noop returns a Resource whose release completes immediately with success.
func Noop() Resource {
	return noopResource{}
}

// onceResource wraps a release function with the one-shot guard the
// teacher's affine continuations use (an atomic CAS flips exactly once),
// adapted from "panic on reuse" to "silent no-op on reuse" since every
// Resource in this package must be idempotent, not affine.
type onceResource struct {
	done    atomic.Bool
	release func(ctx context.Context) error
}

func (r *onceResource) Release(ctx context.Context) error {
	if !r.done.CompareAndSwap(false, true) {
		return nil
	}
	return r.release(ctx)
}

// fromFunc wraps a plain release function as an idempotent Resource.
func fromFunc(release func(ctx context.Context) error) Resource {
	return &onceResource{release: release}
}

// Sequential awaits each release in iteration order. This implementation
// continues releasing every item even after one fails (spec permits either
// "stop on first error" or "continue and surface the first error" — this
// module always continues, so a failure in one resource never strands its
// siblings undone), and surfaces the errors joined together.
func Sequential(items ...Resource) Resource {
	snapshot := append([]Resource(nil), items...)
	return fromFunc(func(ctx context.Context) error {
		var errs []error
		for _, item := range snapshot {
			if item == nil {
				continue
			}
			if err := item.Release(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Parallel attempts every release concurrently and waits for all to
// settle. Every outcome is recorded as a cont.Either before folding, so a
// failing release is never discarded just because a sibling succeeded.
func Parallel(items ...Resource) Resource {
	snapshot := append([]Resource(nil), items...)
	return fromFunc(func(ctx context.Context) error {
		outcomes := make([]cont.Either[error, struct{}], len(snapshot))
		var wg sync.WaitGroup
		for i, item := range snapshot {
			if item == nil {
				outcomes[i] = cont.Right[error](struct{}{})
				continue
			}
			wg.Add(1)
			go func(i int, item Resource) {
				defer wg.Done()
				if err := item.Release(ctx); err != nil {
					outcomes[i] = cont.Left[error, struct{}](err)
				} else {
					outcomes[i] = cont.Right[error](struct{}{})
				}
			}(i, item)
		}
		wg.Wait()

		var errs []error
		for _, o := range outcomes {
			if e, ok := o.GetLeft(); ok {
				errs = append(errs, e)
			}
		}
		return errors.Join(errs...)
	})
}

// growingResource is a mutex-guarded, dynamically extended composite whose
// members release in LIFO (reverse-of-attachment) order. BasicRealm and
// EffectRealm use it to track every Resource an Observer hands back, none
// of which ever need to be released individually — unlike the Blueprint
// driver's use-point subscriptions (blueprint.go), which do, and so are
// kept in an index-addressable map instead.
type growingResource struct {
	mu       sync.Mutex
	children []Resource
	released bool
}

func newGrowingResource() *growingResource {
	return &growingResource{}
}

// add attaches a child resource. No-op if this container already released.
func (g *growingResource) add(r Resource) {
	if r == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return
	}
	g.children = append(g.children, r)
}

func (g *growingResource) Release(ctx context.Context) error {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return nil
	}
	g.released = true
	children := g.children
	g.children = nil
	g.mu.Unlock()

	var errs []error
	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
