package realm

import (
	"context"
	"time"
)

// Clock is the injectable time source behind UseTimeout. Production code
// gets realTimeClock; tests inject a fake so timing assertions never
// depend on wall-clock sleeps.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Resource
}

type realTimeClock struct{}

func (realTimeClock) AfterFunc(d time.Duration, f func()) Resource {
	t := time.AfterFunc(d, f)
	return fromFunc(func(context.Context) error {
		t.Stop()
		return nil
	})
}

// DefaultClock is the Clock every wrapper uses unless a *Scope's body
// overrides it with UseClock. It is a plain package variable, not a
// context-provided value, so overriding it in a test never requires
// threading a ContextKey through every Blueprint body under test.
var DefaultClock Clock = realTimeClock{}

var clockContext = CreateContext[Clock]()

// UseClock provides clock to every wrapper beneath this point in the
// current pass that asks for a deterministic time source.
func UseClock(s *Scope, clock Clock) {
	clockContext.Provide(s, clock)
}

func currentClock(s *Scope) Clock {
	if v, ok := s.ctxValues[clockContext.id]; ok {
		return v.(Clock)
	}
	return DefaultClock
}

// UseEffect runs maker through NewEffect and resolves the Blueprint's
// next use-point with its eventual result.
func UseEffect[T any](s *Scope, maker EffectMaker[T]) T {
	return Use(s, NewEffect(maker))
}

// UseTimeout suspends the Blueprint until d has elapsed, measured by the
// Clock currently in scope (UseClock, or DefaultClock).
func UseTimeout(s *Scope, d time.Duration) {
	clock := currentClock(s)
	Use(s, NewBasic(func(obs Observer[struct{}]) Resource {
		return clock.AfterFunc(d, func() { obs(struct{}{}) })
	}))
}

// UseGuard blocks this pass from completing while pred returns false. It
// does not itself watch for pred becoming true; whatever upstream Use
// calls pred depends on must be the thing that triggers the next pass.
func UseGuard(s *Scope, pred func() bool) {
	if s.finished.Load() {
		panic(ErrStaleScope)
	}
	if !pred() {
		panic(suspendSignal{})
	}
}

// UseIterable resolves inline with the first item in items; every later
// item is replayed as its own pass, in order, on the driver's background
// drain once the current pass has completed. The final item is the
// Blueprint's steady state.
func UseIterable[T any](s *Scope, items []T) T {
	snapshot := append([]T(nil), items...)
	return Use(s, NewBasic(func(obs Observer[T]) Resource {
		for _, item := range snapshot {
			obs(item)
		}
		return Noop()
	}))
}

// UseNever suspends this Blueprint pass forever at this use-point; it
// never resolves and never republishes.
func UseNever[T any](s *Scope) T {
	return Use(s, Never[T]())
}

// ToStore wraps r in a Store so late subscribers receive its backlog.
func ToStore[T any](r Realm[T]) *Store[T] {
	return NewStore(r)
}

// useMemo persists the result of construct across pass replays, calling
// construct only on this use-point's first resolution; later passes reuse
// the very same value. cleanup, if non-nil, is released together with
// every other use-point subscription when the Blueprint's own observation
// is released. This underlies UseCell, UsePortal and UseStore, which must
// allocate their stateful object exactly once, not once per replay.
func useMemo[V any](s *Scope, construct func() (V, Resource)) V {
	if s.finished.Load() {
		panic(ErrStaleScope)
	}
	idx := s.memoCursor
	s.memoCursor++

	if v, ok := s.driver.memoAt(idx); ok {
		return v.(V)
	}
	v, cleanup := construct()
	if cleanup == nil {
		cleanup = Noop()
	}
	s.driver.memoResolve(idx, v, cleanup)
	return v
}

// UseCell creates a CellRealm scoped to this Blueprint's lifetime,
// allocated exactly once across every replay of this pass. Release of the
// Blueprint's observation releases the cell too.
func UseCell[T Equatable[T]](s *Scope, initial T) *CellRealm[T] {
	return useMemo(s, func() (*CellRealm[T], Resource) {
		cell := NewCell(initial)
		return cell, fromFunc(cell.Release)
	})
}

// UseComparableCell is UseCell for any comparable T, using == as Equal.
func UseComparableCell[T comparable](s *Scope, initial T) *CellRealm[comparableBox[T]] {
	return UseCell(s, comparableBox[T]{v: initial})
}

// portalPair boxes NewPortal's two return values so useMemo, which
// persists exactly one value per use-point, can hold both.
type portalPair[T any] struct {
	store  *Store[T]
	setter func(T) Realm[struct{}]
}

// UsePortal creates a Portal scoped to this Blueprint's lifetime,
// allocated exactly once across every replay of this pass.
func UsePortal[T any](s *Scope) (*Store[T], func(T) Realm[struct{}]) {
	pair := useMemo(s, func() (portalPair[T], Resource) {
		store, setter := NewPortal[T]()
		return portalPair[T]{store: store, setter: setter}, fromFunc(store.Release)
	})
	return pair.store, pair.setter
}

// UseStore instantiates r through a Store scoped to this Blueprint's
// lifetime, allocated exactly once across every replay of this pass, so
// later Use calls against the returned Store replay its backlog instead
// of resubscribing to r.
func UseStore[T any](s *Scope, r Realm[T]) *Store[T] {
	return useMemo(s, func() (*Store[T], Resource) {
		store := NewStore(r)
		return store, fromFunc(store.Release)
	})
}
