package cont

// Monad operations for continuations.
//
// Minimal definition: Return (unit) and Bind are necessary and sufficient.
// Map is a derived operation kept as an optimization to avoid an
// intermediate closure allocation.

// Bind sequences two continuations (monadic bind).
// It runs m, then passes the result to f to get a new continuation.
//
// realm.FlatMap(r, f) is Bind(r, f): every value the outer continuation
// produces is handed to f, whose resulting continuation is run against the
// very same downstream observer — which is exactly how a child Realm's
// published values end up owned by the outer value's observation.
func Bind[R, A, B any](m Cont[R, A], f func(A) Cont[R, B]) Cont[R, B] {
	return func(k func(B) R) R {
		return m(func(a A) R {
			return f(a)(k)
		})
	}
}

// Map applies a pure function to the result of a continuation.
//
// realm.Map(r, f) is Map(r, f): the parent continuation is instantiated once
// and every value it produces is transformed before reaching the observer.
func Map[R, A, B any](m Cont[R, A], f func(A) B) Cont[R, B] {
	return func(k func(B) R) R {
		return m(func(a A) R {
			return k(f(a))
		})
	}
}
