package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies evaluation failures.
type ErrorKind string

const (
	KindUndefinedVariable       ErrorKind = "UndefinedVariable"
	KindTypeMismatch            ErrorKind = "TypeMismatch"
	KindInvalidAssignmentTarget ErrorKind = "InvalidAssignmentTarget"
	KindUnsupportedOperator     ErrorKind = "UnsupportedOperator"
	KindResourceLimit           ErrorKind = "ResourceLimit"
)

// EvaluationError is a runtime failure that aborts a program run.
type EvaluationError struct {
	Kind    ErrorKind
	Message string

	// Name is the variable name for UndefinedVariable.
	Name string

	// Operator, Expected and Actual describe a TypeMismatch.
	Operator string
	Expected string
	Actual   string

	// Node is the pseudocode of the node that failed, when known.
	Node string
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (in %s)", e.Kind, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// WithNode records the failing node if none has been recorded yet, so the
// innermost node wins as the error propagates outward.
func (e *EvaluationError) WithNode(node string) *EvaluationError {
	if e.Node == "" {
		e.Node = node
	}
	return e
}

// IsKind reports whether err is an EvaluationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}

// NewUndefinedVariableError creates an UndefinedVariable error.
func NewUndefinedVariableError(name string) *EvaluationError {
	return &EvaluationError{
		Kind:    KindUndefinedVariable,
		Message: fmt.Sprintf("undefined variable '%s'", name),
		Name:    name,
	}
}

// NewTypeMismatchError creates a TypeMismatch error for an operator applied
// to an operand of the wrong variant.
func NewTypeMismatchError(op string, expected, actual ValueType) *EvaluationError {
	return &EvaluationError{
		Kind:     KindTypeMismatch,
		Message:  fmt.Sprintf("operator '%s' expects %s, got %s", op, expected, actual),
		Operator: op,
		Expected: expected.String(),
		Actual:   actual.String(),
	}
}

// NewInvalidAssignmentTargetError creates an InvalidAssignmentTarget error.
func NewInvalidAssignmentTargetError(target string) *EvaluationError {
	return &EvaluationError{
		Kind:    KindInvalidAssignmentTarget,
		Message: fmt.Sprintf("cannot assign to '%s': left-hand side must be a variable", target),
	}
}

// NewUnsupportedOperatorError creates an UnsupportedOperator error.
func NewUnsupportedOperatorError(op string) *EvaluationError {
	return &EvaluationError{
		Kind:     KindUnsupportedOperator,
		Message:  fmt.Sprintf("unsupported operator '%s'", op),
		Operator: op,
	}
}

// NewResourceLimitError creates a ResourceLimit error.
func NewResourceLimitError(msg string) *EvaluationError {
	return &EvaluationError{Kind: KindResourceLimit, Message: msg}
}
