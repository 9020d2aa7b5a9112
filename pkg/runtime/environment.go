// Package runtime implements the tree-walking interpreter.
package runtime

import "github.com/lemonberrylabs/treewalk/pkg/types"

// Environment is the flat, mutable variable namespace of a single run.
// There is no block scoping: every assignment anywhere in a program writes
// to the same map. An Environment is owned by one interpreter and is not
// safe for concurrent use.
type Environment struct {
	vars map[string]types.Value
}

// NewEnvironment creates an environment seeded with a copy of initial.
// A nil map starts an empty environment.
func NewEnvironment(initial map[string]types.Value) *Environment {
	vars := make(map[string]types.Value, len(initial))
	for k, v := range initial {
		vars[k] = v
	}
	return &Environment{vars: vars}
}

// Get retrieves a variable value.
func (e *Environment) Get(name string) (types.Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set binds or rebinds a variable.
func (e *Environment) Set(name string, value types.Value) {
	e.vars[name] = value
}

// Has reports whether a variable is bound.
func (e *Environment) Has(name string) bool {
	_, ok := e.vars[name]
	return ok
}

// Len returns the number of bound variables.
func (e *Environment) Len() int {
	return len(e.vars)
}

// Snapshot returns a copy of the current bindings.
func (e *Environment) Snapshot() map[string]types.Value {
	out := make(map[string]types.Value, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

// String renders the bindings sorted by name, e.g. "{done: true, x: 3}".
func (e *Environment) String() string {
	return types.FormatBindings(e.vars)
}
