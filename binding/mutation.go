package binding

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/arloliu/livesub/identity"
	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/types"
)

// Mutation calls one backend mutation.
type Mutation struct {
	client   types.LiveQueryClient
	mutation types.FunctionReference
	update   types.OptimisticUpdate
	logger   types.Logger
}

// MutationOption configures a Mutation.
type MutationOption func(*Mutation)

// WithOptimisticUpdate applies update to the client's local query results
// before every call is sent.
func WithOptimisticUpdate(update types.OptimisticUpdate) MutationOption {
	return func(m *Mutation) {
		m.update = update
	}
}

// WithMutationLogger sets the logger.
func WithMutationLogger(l types.Logger) MutationOption {
	return func(m *Mutation) {
		m.logger = logger.OrNop(l)
	}
}

// NewMutation binds mutation to client.
//
// Returns:
//   - *Mutation: Callable mutation
//   - error: ErrClientRequired or ErrInvalidFunctionReference
func NewMutation(client types.LiveQueryClient, mutation types.FunctionReference, opts ...MutationOption) (*Mutation, error) {
	if client == nil {
		return nil, types.ErrClientRequired
	}
	if err := types.ValidateReference(mutation, types.KindMutation); err != nil {
		return nil, err
	}

	m := &Mutation{client: client, mutation: mutation, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Call runs the mutation with args and returns its encoded result.
//
// args may be nil, a types.Args, any map with string keys or a struct. A UI
// event object passed by mistake (for example a handler reference wired
// straight to a click event) is rejected with ErrEventArgs before anything is
// sent.
func (m *Mutation) Call(ctx context.Context, args any) (json.RawMessage, error) {
	if isEventLike(args) {
		m.logger.Error("mutation called with an event object", "mutation", m.mutation.FunctionName(), "type", fmt.Sprintf("%T", args))
		return nil, fmt.Errorf("%w: %s received %T; wrap the call in a closure that passes the intended arguments",
			types.ErrEventArgs, m.mutation.FunctionName(), args)
	}

	converted, err := identity.ToArgs(args)
	if err != nil {
		return nil, err
	}

	var opts *types.MutationOptions
	if m.update != nil {
		opts = &types.MutationOptions{OptimisticUpdate: m.update}
	}

	return m.client.Mutate(ctx, m.mutation, converted, opts)
}

// CallAs runs m and decodes its result into T.
func CallAs[T any](ctx context.Context, m *Mutation, args any) (T, error) {
	var out T

	raw, err := m.Call(ctx, args)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %w", types.ErrMalformedResult, err)
	}

	return out, nil
}

// isEventLike reports whether v looks like a UI event rather than arguments:
// a non-map value with PreventDefault and StopPropagation methods that also
// exposes Target and Bubbles as fields or methods.
func isEventLike(v any) bool {
	if v == nil {
		return false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map {
		return false
	}
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return false
	}

	return hasMethod(rv, "PreventDefault") &&
		hasMethod(rv, "StopPropagation") &&
		hasMember(rv, "Target") &&
		hasMember(rv, "Bubbles")
}

func hasMethod(rv reflect.Value, name string) bool {
	return rv.MethodByName(name).IsValid()
}

func hasMember(rv reflect.Value, name string) bool {
	if hasMethod(rv, name) {
		return true
	}

	elem := reflect.Indirect(rv)
	if elem.Kind() != reflect.Struct {
		return false
	}
	_, ok := elem.Type().FieldByName(name)

	return ok
}
