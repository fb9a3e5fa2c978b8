// Package cont provides the continuation-passing primitives that back
// realm.Realm.
//
// The core type [Cont] represents a computation that accepts a
// continuation and produces a final result:
//
//	type Cont[R, A any] func(k func(A) R) R
//
// realm.Realm[T] is, by construction, the same shape with R fixed to
// realm.Resource and the continuation renamed Observer: instantiating a
// Realm is applying a Cont to its observer. [Map] and [Bind] give
// realm.Map and realm.FlatMap their implementations directly.
//
// [Either] is used wherever a computation's result and its failure need to
// travel together without losing either one — in this package that means
// aggregating the outcome of more than one resource release without
// discarding a successful release just because a sibling failed.
//
// This package intentionally carries none of the upstream library's
// algebraic-effect dispatch, frame defunctionalization, or State/Reader/
// Writer effect families: nothing in realm needs multi-shot op-level effect
// handlers or allocation-tuned frame pooling, and carrying that machinery
// here unused would just be dead weight. See DESIGN.md for the full
// per-file accounting.
package cont
