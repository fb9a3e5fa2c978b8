package realm

import (
	"errors"
	"fmt"
)

// ErrStaleScope is raised as a panic, which the Blueprint driver does not
// recover and which therefore reaches the caller, when a *Scope captured
// inside a Blueprint Body outlives the pass that created it — for example, a closure that
// calls Use and is invoked again after the body has already returned.
var ErrStaleScope = errors.New("realm: Scope used outside its Blueprint body pass")

// MissingContextError is the concrete type behind ErrMissingContext.
type MissingContextError struct {
	Name string
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("realm: no value provided for context %q", e.Name)
}

// ErrMissingContext builds the error ContextKey[T].Consume panics with
// when no enclosing Provide call exists for that key in the current pass.
func ErrMissingContext(name string) error {
	return &MissingContextError{Name: name}
}
