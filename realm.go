package realm

import (
	"code.realmrt.dev/realm/cont"
)

// Observer receives a published value and returns the Resource that owns
// whatever that observation allocated. An Observer is structurally a
// continuation's resume function, which is what lets Realm be built
// directly on top of cont.Cont instead of reinventing its plumbing.
type Observer[T any] func(value T) Resource

// Realm is a value-producer with an observation protocol: Instantiate
// attaches an Observer and returns the Resource that, once released,
// guarantees the Observer will receive no further values and every
// Resource it returned has itself been released.
type Realm[T any] interface {
	Instantiate(obs Observer[T]) Resource
}

// toCont views a Realm as the continuation its Instantiate method already
// is: Observer[T] is func(T) Resource, i.e. func(T) R for R = Resource, so
// this is a plain adaptation from a method value to a func literal, not a
// change in what either side does.
func toCont[T any](r Realm[T]) cont.Cont[Resource, T] {
	return func(k func(T) Resource) Resource {
		return r.Instantiate(k)
	}
}

// funcRealm adapts a plain instantiation function to satisfy Realm.
type funcRealm[T any] func(obs Observer[T]) Resource

func (f funcRealm[T]) Instantiate(obs Observer[T]) Resource {
	return f(obs)
}

// fromCont lifts a cont.Cont[Resource, T] back into a Realm. Instantiate's
// job is exactly cont.RunWith's: apply the continuation to the caller's
// final continuation (here, the Observer) and return its result.
func fromCont[T any](m cont.Cont[Resource, T]) Realm[T] {
	return funcRealm[T](func(obs Observer[T]) Resource {
		return cont.RunWith(m, obs)
	})
}

// Pure returns a Realm that publishes value exactly once, synchronously,
// to every Observer it is given. The Resource Instantiate returns is the
// one the Observer returned for value: releasing it releases that child
// and nothing else.
func Pure[T any](value T) Realm[T] {
	return fromCont[T](cont.Return[Resource](value))
}

// Never returns a Realm that never publishes and whose Resource release
// always succeeds trivially. Useful as a placeholder source, e.g. for
// UseNever and for composite Realms with an absent branch.
func Never[T any]() Realm[T] {
	return funcRealm[T](func(Observer[T]) Resource {
		return Noop()
	})
}

// Lazy defers constructing the underlying Realm until the first
// Instantiate call, and builds it fresh on every call.
func Lazy[T any](build func() Realm[T]) Realm[T] {
	return funcRealm[T](func(obs Observer[T]) Resource {
		return build().Instantiate(obs)
	})
}
