package cont

// RunWith executes a continuation with a custom final continuation.
// realm.Realm.Instantiate is exactly RunWith with R fixed to realm.Resource
// and the final continuation being the caller-supplied Observer.
func RunWith[R, A any](m Cont[R, A], k func(A) R) R {
	return m(k)
}
