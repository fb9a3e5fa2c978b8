package realm

import (
	"context"
	"sync"
	"sync/atomic"
)

// Body is the imperative description of a Blueprint: ordinary Go code
// that calls Use (directly, or through one of the UseXxx wrappers) at
// fixed points to pull values out of other Realms. The same Body runs
// again, from the top, every time a use-point it already resolved
// publishes a new value — already-resolved use-points replay instantly
// from history instead of re-subscribing.
type Body[T any] func(s *Scope) T

// Scope threads a single Blueprint pass's state through Use and the
// context helpers. It is only valid for the duration of the Body call
// that received it; retaining it past that call and calling Use again
// panics with ErrStaleScope.
//
// cursor and memoCursor are independent counters: Use-points (replayed
// from history, torn down on reenter) and useMemo-points (allocated once,
// surviving every reenter) live in separate index spaces so that an
// upstream update at one Use-point never releases a memoized container
// sitting at a later position in the Body.
type Scope struct {
	driver     blueprintDriver
	cursor     int
	memoCursor int
	ctxValues  map[any]any
	finished   atomic.Bool
}

// blueprintDriver is the generic-free face every ToRealm[T] driver
// presents to Scope and Use, so Scope itself does not need a type
// parameter.
type blueprintDriver interface {
	// historyLen and historyAt read the shared, commit-once history under
	// the driver's own lock.
	historyLen() int
	historyAt(idx int) any
	// resolve commits the first value landed at idx, returning false if
	// another pass already committed it first (a benign race, resolved by
	// keeping whichever commit landed first).
	resolve(idx int, value any, res Resource) bool
	// reenter is called by a use-point's second-and-later publication. It
	// queues the update rather than applying it immediately, so that a
	// burst of synchronous publications at the same use-point (see
	// UseIterable) is replayed one full pass at a time, strictly in order,
	// never overlapping the pass that is still producing them.
	reenter(idx int, value any)
	// memoAt and memoResolve back useMemo's persistence layer: entries
	// here are never released or rewritten by reenter, only by the
	// driver's own release.
	memoAt(idx int) (any, bool)
	memoResolve(idx int, value any, cleanup Resource)
}

// suspendSignal unwinds a Body call whose next use-point has no value
// available yet. It is only ever recovered by runPass; it must never
// reach code outside this file.
type suspendSignal struct{}

// Use resolves the next use-point in s against r: on this use-point's
// first ever resolution it subscribes to r and, if that subscription
// calls back synchronously, returns the value inline so the rest of the
// Body keeps running in the same pass. A subscription that has not
// called back by the time Instantiate returns suspends this pass; later
// publications (the first one if it arrived asynchronously, or any
// publication after the first) schedule a fresh pass with history
// extended or overwritten from this use-point onward.
func Use[V any](s *Scope, r Realm[V]) V {
	if s.finished.Load() {
		panic(ErrStaleScope)
	}
	idx := s.cursor
	s.cursor++

	if idx < s.driver.historyLen() {
		return s.driver.historyAt(idx).(V)
	}

	var (
		mu           sync.Mutex
		landed       bool
		first        V
		instantiated bool // set once r.Instantiate(obs) has returned
	)
	obs := func(v V) Resource {
		mu.Lock()
		wasFirst := !landed
		if wasFirst {
			landed = true
			first = v
		}
		// A call is consumed inline only if it is both this use-point's
		// first ever publication AND it happened synchronously, before
		// r.Instantiate returned. Every other call — a second publication,
		// or a first publication that arrives after Instantiate already
		// returned control without one — supersedes whatever this pass is
		// doing and starts a fresh one.
		needsReenter := !wasFirst || instantiated
		mu.Unlock()
		if needsReenter {
			s.driver.reenter(idx, v)
		}
		return Noop()
	}

	res := r.Instantiate(obs)

	mu.Lock()
	instantiated = true
	ok, v := landed, first
	mu.Unlock()

	if ok {
		s.driver.resolve(idx, v, res)
		return v
	}
	panic(suspendSignal{})
}

// memoEntry is one useMemo slot: the constructed value together with its
// cleanup Resource, kept alive until the driver itself is released.
type memoEntry struct {
	value   any
	cleanup Resource
}

// reentry is a queued (use-point, value) pair awaiting replay.
type reentry struct {
	idx   int
	value any
}

// blueprintState is the shared, lock-guarded state behind every
// blueprintDriver[T].
type blueprintState struct {
	mu         sync.Mutex
	history    []any
	useRes     map[int]Resource
	memo       map[int]memoEntry
	generation int
	closed     bool
	queue      []reentry
	draining   bool
}

type driver[T any] struct {
	state blueprintState
	// runMu serializes every pass this driver ever runs: the initial pass
	// and every pass replayed off the reentry queue. Holding it for a
	// pass's entire body call is what makes reentry ordering deterministic
	// instead of racing two passes against each other's goroutines.
	runMu     sync.Mutex
	body      Body[T]
	outerObs  Observer[T]
	valueRes  Resource
	inherited map[any]any // seeded into every pass's ctxValues; see ToChildRealm
}

func (d *driver[T]) historyLen() int {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	return len(d.state.history)
}

func (d *driver[T]) historyAt(idx int) any {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	return d.state.history[idx]
}

func (d *driver[T]) resolve(idx int, value any, res Resource) bool {
	d.state.mu.Lock()
	if d.state.closed {
		d.state.mu.Unlock()
		go res.Release(context.Background())
		return false
	}
	if d.state.useRes == nil {
		d.state.useRes = make(map[int]Resource)
	}
	if idx != len(d.state.history) {
		// Another pass already committed this index first; this
		// subscription lost the race and owns nothing going forward.
		d.state.mu.Unlock()
		go res.Release(context.Background())
		return false
	}
	d.state.history = append(d.state.history, value)
	d.state.useRes[idx] = res
	d.state.mu.Unlock()
	return true
}

func (d *driver[T]) memoAt(idx int) (any, bool) {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	e, ok := d.state.memo[idx]
	return e.value, ok
}

func (d *driver[T]) memoResolve(idx int, value any, cleanup Resource) {
	d.state.mu.Lock()
	if d.state.closed {
		d.state.mu.Unlock()
		go cleanup.Release(context.Background())
		return
	}
	if d.state.memo == nil {
		d.state.memo = make(map[int]memoEntry)
	}
	d.state.memo[idx] = memoEntry{value: value, cleanup: cleanup}
	d.state.mu.Unlock()
}

// reenter queues (idx, value) for replay and, unless a drain is already
// in flight, starts one. Draining is serialized through runMu, so a burst
// of synchronous publications at the same use-point — delivered while the
// pass that is subscribing is still running, still holding runMu — blocks
// until that pass fully completes, then replays each queued value as its
// own full pass, strictly in the order it arrived.
func (d *driver[T]) reenter(idx int, value any) {
	d.state.mu.Lock()
	if d.state.closed {
		d.state.mu.Unlock()
		return
	}
	d.state.queue = append(d.state.queue, reentry{idx, value})
	if d.state.draining {
		d.state.mu.Unlock()
		return
	}
	d.state.draining = true
	d.state.mu.Unlock()
	go d.drain()
}

func (d *driver[T]) drain() {
	for {
		d.state.mu.Lock()
		if len(d.state.queue) == 0 {
			d.state.draining = false
			d.state.mu.Unlock()
			return
		}
		item := d.state.queue[0]
		d.state.queue = d.state.queue[1:]
		d.state.mu.Unlock()

		d.runMu.Lock()
		d.applyReentry(item)
		d.runMu.Unlock()
	}
}

// applyReentry truncates history at item.idx, rewrites it to item.value
// (or appends, if item.idx is exactly the unresolved frontier — the
// late-first-arrival case), and runs the resulting pass to completion.
// Called only while runMu is held, so it never overlaps another pass.
func (d *driver[T]) applyReentry(item reentry) {
	d.state.mu.Lock()
	if d.state.closed || item.idx > len(d.state.history) {
		d.state.mu.Unlock()
		return
	}
	var stale []Resource
	for i := item.idx + 1; i < len(d.state.history); i++ {
		if r, ok := d.state.useRes[i]; ok {
			stale = append(stale, r)
			delete(d.state.useRes, i)
		}
	}
	next := make([]any, item.idx, item.idx+1)
	copy(next, d.state.history[:item.idx])
	next = append(next, item.value)
	d.state.history = next
	d.state.generation++
	gen := d.state.generation
	d.state.mu.Unlock()

	for _, r := range stale {
		go r.Release(context.Background())
	}
	d.runPass(gen)
}

func (d *driver[T]) runPass(gen int) {
	ctxValues := make(map[any]any, len(d.inherited))
	for k, v := range d.inherited {
		ctxValues[k] = v
	}
	s := &Scope{driver: d, ctxValues: ctxValues}
	defer s.finished.Store(true)

	var result T
	completed := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				if _, isSuspend := r.(suspendSignal); isSuspend {
					ok = false
					return
				}
				panic(r)
			}
		}()
		result = d.body(s)
		return true
	}()
	if !completed {
		return
	}

	d.state.mu.Lock()
	if d.state.closed || gen != d.state.generation {
		d.state.mu.Unlock()
		return
	}
	old := d.valueRes
	d.state.mu.Unlock()

	newRes := d.outerObs(result)

	d.state.mu.Lock()
	d.valueRes = newRes
	d.state.mu.Unlock()

	if old != nil {
		go old.Release(context.Background())
	}
}

func (d *driver[T]) release(ctx context.Context) error {
	d.state.mu.Lock()
	if d.state.closed {
		d.state.mu.Unlock()
		return nil
	}
	d.state.closed = true
	subs := make([]Resource, 0, len(d.state.useRes)+len(d.state.memo))
	for _, r := range d.state.useRes {
		subs = append(subs, r)
	}
	d.state.useRes = nil
	for _, e := range d.state.memo {
		subs = append(subs, e.cleanup)
	}
	d.state.memo = nil
	valRes := d.valueRes
	d.state.mu.Unlock()

	return Parallel(append(subs, valRes)...).Release(ctx)
}

// ToRealm turns a Body into a Realm: every Instantiate call starts its own
// independent pass-lineage, driven by its own *driver.
func ToRealm[T any](body Body[T]) Realm[T] {
	return funcRealm[T](func(obs Observer[T]) Resource {
		d := &driver[T]{body: body, outerObs: obs}
		d.runMu.Lock()
		d.runPass(0)
		d.runMu.Unlock()
		return fromFunc(d.release)
	})
}

// ToChildRealm is ToRealm for a Blueprint nested inside another one: every
// pass of the child body starts with a snapshot of parent's context values
// already provided, so a Consume inside the child sees whatever the parent
// Provided before forking it off. The snapshot is taken once, at the
// moment ToChildRealm is called — later Provide calls in the parent's own
// pass are not retroactively visible to an already-constructed child.
//
// Go has no ambient per-goroutine scope the way the source language's
// implicit dynamic-scope hook does, so inheritance here is explicit: the
// caller must be holding the parent's *Scope and choose to fork a child
// Realm from it, the same way Provide/Consume themselves are explicit.
func ToChildRealm[T any](parent *Scope, body Body[T]) Realm[T] {
	if parent.finished.Load() {
		panic(ErrStaleScope)
	}
	inherited := make(map[any]any, len(parent.ctxValues))
	for k, v := range parent.ctxValues {
		inherited[k] = v
	}
	return funcRealm[T](func(obs Observer[T]) Resource {
		d := &driver[T]{body: body, outerObs: obs, inherited: inherited}
		d.runMu.Lock()
		d.runPass(0)
		d.runMu.Unlock()
		return fromFunc(d.release)
	})
}
