// Package realm is a resource-lifetime reactive runtime.
//
// # Overview
//
// Three tightly coupled subsystems:
//
//   - Realm: an observation protocol over value-producers that binds every
//     published value's lifetime to the observation that created it.
//   - Blueprint: a synchronous-style composition mechanism that turns
//     imperative code containing suspension points ([Use]) into a lazy
//     Realm, using replay plus a continuation trampoline.
//   - Containers: [Store], [CellRealm] and the Portal pair returned by
//     [NewPortal] — the three Realms used as mutable reactive state.
//
// # Publishing and releasing
//
// Every [Realm] exposes exactly one method, Instantiate, which takes an
// [Observer] and returns a [Resource]. Publishing and releasing are the
// only observable events: every value an Observer receives is owned by the
// observation that produced it, and releasing that observation's Resource
// must release every child Resource the Observer returned.
//
// # Blueprint
//
//	type intBox int
//
//	func (b intBox) Equal(other intBox) bool { return b == other }
//
//	counter := realm.ToRealm(func(s *realm.Scope) int {
//	    cell := realm.UseCell(s, intBox(0))
//	    v := realm.Use(s, cell)
//	    return int(v)
//	})
//
// Within a Body, [Use] "extracts" a value from a Realm; the body suspends
// as if it were waiting for that Realm's next publication and resumes —
// conceptually from the start, replaying already-resolved use-points from
// history — every time one arrives.
//
// # Containers
//
// [Store] memoizes and fans out one source observation to many observers.
// [CellRealm] is a single mutable value with structural-equality
// deduplication. [NewPortal] returns a [Store] and a setter whose returned
// Realm's lifetime controls the presence of the value it was given.
package realm
