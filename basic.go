package realm

// NewBasic builds a Realm[T] from a subscribe function: whatever
// subscribe does to deliver values to obs is up to the caller, but every
// Resource obs returns must be tracked so that releasing the Resource
// NewBasic hands back also releases every still-live observation,
// regardless of whether subscribe itself has finished.
//
// This is the primitive most other constructors in this package are built
// from: a single Realm whose entire contract is "call subscribe once per
// Instantiate, and make sure nothing outlives the returned Resource."
func NewBasic[T any](subscribe func(obs Observer[T]) Resource) Realm[T] {
	return funcRealm[T](func(obs Observer[T]) Resource {
		live := newGrowingResource()
		wrapped := func(v T) Resource {
			r := obs(v)
			live.add(r)
			return r
		}
		live.add(subscribe(wrapped))
		return live
	})
}
