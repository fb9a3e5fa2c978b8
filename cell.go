package realm

import (
	"context"
	"sync"
)

// Equatable lets CellRealm deduplicate structurally equal values for
// types that aren't comparable with ==. The GLOSSARY's guidance for
// systems-language ports is to accept a user-supplied equality trait
// rather than relying on reflection-based deep comparison.
type Equatable[T any] interface {
	Equal(T) bool
}

// comparableBox adapts a comparable type into Equatable without asking
// the caller to write a trivial Equal method themselves.
type comparableBox[T comparable] struct{ v T }

func (b comparableBox[T]) Equal(other comparableBox[T]) bool {
	return b.v == other.v
}

// CellRealm is a single mutable value, observed like any other Realm[T],
// that only republishes when Set or Modify actually change the value
// under T's own Equal method.
type CellRealm[T Equatable[T]] struct {
	mu        sync.Mutex
	value     T
	observers map[int]Observer[T]
	nextObs   int
	links     map[int]Resource
	closed    bool
	// pending tracks every Release spawned in the background by Set for a
	// superseded link, so Release can await them before releasing the
	// cell's own current sub-Resources.
	pending sync.WaitGroup
}

// NewCell creates a CellRealm holding initial.
func NewCell[T Equatable[T]](initial T) *CellRealm[T] {
	return &CellRealm[T]{
		value:     initial,
		observers: make(map[int]Observer[T]),
		links:     make(map[int]Resource),
	}
}

// NewComparableCell is NewCell for any comparable T, using == as Equal.
func NewComparableCell[T comparable](initial T) *CellRealm[comparableBox[T]] {
	return NewCell(comparableBox[T]{v: initial})
}

// releaseAsync releases r in the background, tracked by c.pending so
// Release can wait for it to actually finish before tearing down the
// cell's own current sub-Resources.
func (c *CellRealm[T]) releaseAsync(r Resource) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		r.Release(context.Background())
	}()
}

// Instantiate registers obs and immediately delivers the current value.
func (c *CellRealm[T]) Instantiate(obs Observer[T]) Resource {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Noop()
	}
	obsID := c.nextObs
	c.nextObs++
	c.observers[obsID] = obs
	current := c.value
	c.mu.Unlock()

	r := obs(current)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.releaseAsync(r)
	} else {
		c.links[obsID] = r
		c.mu.Unlock()
	}

	return fromFunc(func(ctx context.Context) error {
		c.mu.Lock()
		delete(c.observers, obsID)
		link, ok := c.links[obsID]
		delete(c.links, obsID)
		c.mu.Unlock()
		if !ok || link == nil {
			return nil
		}
		return link.Release(ctx)
	})
}

// Peek returns the current value without observing it.
func (c *CellRealm[T]) Peek() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set replaces the value. Observers are renotified only if v is not Equal
// to the value currently held.
func (c *CellRealm[T]) Set(v T) {
	c.mu.Lock()
	if c.closed || c.value.Equal(v) {
		c.mu.Unlock()
		return
	}
	c.value = v
	observers := make(map[int]Observer[T], len(c.observers))
	for id, obs := range c.observers {
		observers[id] = obs
	}
	c.mu.Unlock()

	for obsID, obs := range observers {
		newRes := obs(v)
		c.mu.Lock()
		old := c.links[obsID]
		if c.closed {
			c.links[obsID] = nil
			c.mu.Unlock()
			c.releaseAsync(newRes)
			if old != nil {
				c.releaseAsync(old)
			}
			continue
		}
		c.links[obsID] = newRes
		c.mu.Unlock()
		if old != nil {
			c.releaseAsync(old)
		}
	}
}

// Modify applies f to the current value and Sets the result.
func (c *CellRealm[T]) Modify(f func(T) T) {
	c.Set(f(c.Peek()))
}

// Release awaits every release Set has already spawned in the background
// for a superseded link, then tears down every outstanding observation
// and marks the cell closed; further Set/Modify calls become no-ops.
func (c *CellRealm[T]) Release(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	links := make([]Resource, 0, len(c.links))
	for id, r := range c.links {
		if r != nil {
			links = append(links, r)
		}
		delete(c.links, id)
	}
	c.observers = nil
	c.mu.Unlock()

	c.pending.Wait()
	return Parallel(links...).Release(ctx)
}
