package types

import (
	"fmt"
	"strings"
)

// FunctionKind distinguishes backend queries from mutations.
type FunctionKind int

const (
	// KindQuery marks a read-only function that can be subscribed to.
	KindQuery FunctionKind = iota + 1

	// KindMutation marks a one-shot write function.
	KindMutation
)

// String returns the string representation of the kind.
func (k FunctionKind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindMutation:
		return "mutation"
	default:
		return "unknown"
	}
}

// FunctionReference names a backend function.
//
// Implementations must return a stable, non-empty name of the form
// "module:function" (for example "tasks:list").
type FunctionReference interface {
	// FunctionName returns the fully qualified function name.
	FunctionName() string

	// Kind reports whether the function is a query or a mutation.
	Kind() FunctionKind
}

// Ref is the default FunctionReference implementation.
type Ref struct {
	Name string
	Type FunctionKind
}

var _ FunctionReference = Ref{}

// FunctionName implements FunctionReference.
func (r Ref) FunctionName() string { return r.Name }

// Kind implements FunctionReference.
func (r Ref) Kind() FunctionKind { return r.Type }

// String returns "kind name".
func (r Ref) String() string { return r.Type.String() + " " + r.Name }

// QueryRef returns a reference to the named query.
func QueryRef(name string) Ref { return Ref{Name: name, Type: KindQuery} }

// MutationRef returns a reference to the named mutation.
func MutationRef(name string) Ref { return Ref{Name: name, Type: KindMutation} }

// Args holds named function arguments. A nil Args is equivalent to an empty one.
type Args = map[string]any

// Identity is the canonical key of a (query, args) pair.
//
// Two structurally equal argument values always produce the same Identity, and
// one Identity maps to at most one live backend subscription.
type Identity string

// ValidateReference checks that ref names a function of the wanted kind.
//
// Returns:
//   - error: wraps ErrInvalidFunctionReference when ref is nil, unnamed or of the wrong kind
func ValidateReference(ref FunctionReference, want FunctionKind) error {
	if ref == nil {
		return fmt.Errorf("%w: reference is nil", ErrInvalidFunctionReference)
	}
	name := ref.FunctionName()
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: function name is empty", ErrInvalidFunctionReference)
	}
	if ref.Kind() != want {
		return fmt.Errorf("%w: %s is a %s, expected a %s",
			ErrInvalidFunctionReference, name, ref.Kind(), want)
	}

	return nil
}
