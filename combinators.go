package realm

import (
	"code.realmrt.dev/realm/cont"
)

// Map transforms every value a Realm publishes. The child observation's
// Resource is reused unchanged: mapping a value never allocates any
// lifetime of its own.
func Map[A, B any](r Realm[A], f func(A) B) Realm[B] {
	return fromCont[B](cont.Map(toCont(r), f))
}

// Filter republishes only the values that satisfy pred. Values that do
// not pass are instantiated with a Resource that releases immediately,
// since no Observer call happens for them and nothing is owned.
func Filter[T any](r Realm[T], pred func(T) bool) Realm[T] {
	return funcRealm[T](func(obs Observer[T]) Resource {
		return r.Instantiate(func(v T) Resource {
			if !pred(v) {
				return Noop()
			}
			return obs(v)
		})
	})
}

// FlatMap sequences r and then, for every value r publishes, instantiates
// f(value) and republishes whatever that produces. This is cont.Bind
// specialized to Resource as the answer type: the outer Observer receives
// the inner Realm's value, and the returned Resource nests the inner
// observation's Resource under the outer one so releasing the outer
// observation releases the inner one too.
func FlatMap[A, B any](r Realm[A], f func(A) Realm[B]) Realm[B] {
	return fromCont[B](cont.Bind(toCont(r), func(a A) cont.Cont[Resource, B] {
		return toCont(f(a))
	}))
}

// Merge fans every value from every source Realm into one Observer. An
// Observer attached to the merged Realm may be invoked concurrently by
// distinct sources; releasing the merged Resource releases every source's
// observation in Parallel.
func Merge[T any](sources ...Realm[T]) Realm[T] {
	snapshot := append([]Realm[T](nil), sources...)
	return funcRealm[T](func(obs Observer[T]) Resource {
		children := make([]Resource, len(snapshot))
		for i, src := range snapshot {
			children[i] = src.Instantiate(obs)
		}
		return Parallel(children...)
	})
}
