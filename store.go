package realm

import (
	"context"
	"sort"
	"sync"
)

// Store memoizes every value its source Realm publishes and fans each one
// out to every Observer currently registered, including Observers that
// register after a value has already arrived (they receive the backlog
// immediately). Store itself is a Realm[T]; it is also a Resource, since a
// Store's own lifetime (its link to the source) can be released
// independently of any one Observer's registration.
type Store[T any] struct {
	mu      sync.Mutex
	values  map[int]T
	nextVal int

	observers map[int]Observer[T]
	nextObs   int

	// links maps an observer registration ID to the set of value IDs it
	// has already been sent, and the Resource that observer call returned,
	// keyed by (observerID, valueID) so either side can unlink.
	links      map[linkKey]Resource
	sourceRes  Resource
	sourceOnce sync.Once
	closed     bool
}

type linkKey struct {
	observer int
	value    int
}

// NewStore subscribes to source immediately and begins memoizing.
func NewStore[T any](source Realm[T]) *Store[T] {
	s := &Store[T]{
		values:    make(map[int]T),
		observers: make(map[int]Observer[T]),
		links:     make(map[linkKey]Resource),
	}
	s.sourceRes = source.Instantiate(func(v T) Resource {
		return s.publish(v)
	})
	return s
}

// publish records a new value and fans it out to every current observer.
func (s *Store[T]) publish(v T) Resource {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Noop()
	}
	valID := s.nextVal
	s.nextVal++
	s.values[valID] = v

	observers := make(map[int]Observer[T], len(s.observers))
	for id, obs := range s.observers {
		observers[id] = obs
	}
	s.mu.Unlock()

	for obsID, obs := range observers {
		s.link(obsID, valID, obs(v))
	}

	return fromFunc(func(ctx context.Context) error {
		return s.unlinkValue(ctx, valID)
	})
}

func (s *Store[T]) link(obsID, valID int, r Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		go r.Release(context.Background())
		return
	}
	s.links[linkKey{observer: obsID, value: valID}] = r
}

// Instantiate registers obs and immediately replays every memoized value,
// in publish order.
func (s *Store[T]) Instantiate(obs Observer[T]) Resource {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Noop()
	}
	obsID := s.nextObs
	s.nextObs++
	s.observers[obsID] = obs
	backlog := make([]int, 0, len(s.values))
	for id := range s.values {
		backlog = append(backlog, id)
	}
	sort.Ints(backlog)
	values := make([]T, len(backlog))
	for i, id := range backlog {
		values[i] = s.values[id]
	}
	s.mu.Unlock()

	for i, valID := range backlog {
		s.link(obsID, valID, obs(values[i]))
	}

	return fromFunc(func(ctx context.Context) error {
		return s.unlinkObserver(ctx, obsID)
	})
}

func (s *Store[T]) unlinkValue(ctx context.Context, valID int) error {
	s.mu.Lock()
	var toRelease []Resource
	for k, r := range s.links {
		if k.value == valID {
			toRelease = append(toRelease, r)
			delete(s.links, k)
		}
	}
	delete(s.values, valID)
	s.mu.Unlock()
	return Parallel(toRelease...).Release(ctx)
}

func (s *Store[T]) unlinkObserver(ctx context.Context, obsID int) error {
	s.mu.Lock()
	var toRelease []Resource
	for k, r := range s.links {
		if k.observer == obsID {
			toRelease = append(toRelease, r)
			delete(s.links, k)
		}
	}
	delete(s.observers, obsID)
	s.mu.Unlock()
	return Parallel(toRelease...).Release(ctx)
}

// Peek returns every memoized value in publish order.
func (s *Store[T]) Peek() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.values))
	for id := range s.values {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.values[id])
	}
	return out
}

// Release detaches from the source Realm and releases every outstanding
// link. A Store is idempotent to Release like any other Resource.
func (s *Store[T]) Release(ctx context.Context) error {
	var err error
	s.sourceOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		links := make([]Resource, 0, len(s.links))
		for k, r := range s.links {
			links = append(links, r)
			delete(s.links, k)
		}
		s.values = nil
		s.observers = nil
		src := s.sourceRes
		s.mu.Unlock()

		children := append(links, src)
		err = Parallel(children...).Release(ctx)
	})
	return err
}
