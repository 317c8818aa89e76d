package binding

import (
	"github.com/arloliu/livesub/identity"
	"github.com/arloliu/livesub/types"
)

// Params are the arguments of a query binding for one evaluation.
type Params struct {
	// Args are the query arguments. Nil is the same as empty.
	Args types.Args

	// Skip suspends the binding: no subscription exists while it is set.
	Skip bool
}

// With returns Params for args.
func With(args types.Args) Params {
	return Params{Args: args}
}

// Skipped returns the skip sentinel.
func Skipped() Params {
	return Params{Skip: true}
}

// request is one resolved evaluation of a params function.
type request struct {
	id   types.Identity
	args types.Args
	skip bool
	err  error
}

func (r request) same(o request) bool {
	if r.skip || o.skip {
		return r.skip == o.skip
	}
	if r.err != nil || o.err != nil {
		return false
	}

	return r.id == o.id
}

func resolve(query types.FunctionReference, params func() Params) request {
	p := Params{}
	if params != nil {
		p = params()
	}
	if p.Skip {
		return request{skip: true}
	}

	id, err := identity.Of(query, p.Args)
	if err != nil {
		return request{err: err}
	}

	return request{id: id, args: p.Args}
}
