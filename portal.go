package realm

// NewPortal returns a Store that republishes whatever values are pushed
// in from outside the reactive graph, and the setter Realm that performs
// the pushing. Instantiating the setter's returned Realm publishes value
// to the Store for as long as that observation stays live: releasing the
// setter's observation retracts value from the Store the same way any
// other publisher retracting a value would.
//
// This is the bridge construct for feeding externally driven data (a
// socket callback, a UI event, a timer tick) into the reactive graph
// without routing it through a Blueprint body.
func NewPortal[T any]() (*Store[T], func(T) Realm[struct{}]) {
	source := NewBasic(func(Observer[T]) Resource {
		return Noop()
	})
	store := NewStore[T](source)

	setter := func(value T) Realm[struct{}] {
		return NewBasic(func(obs Observer[struct{}]) Resource {
			valueRes := store.publish(value)
			selfRes := obs(struct{}{})
			return Sequential(selfRes, valueRes)
		})
	}

	return store, setter
}
