// Package identity derives the canonical key of a (query, args) pair.
//
// The key is the function name, a colon, and the canonical JSON encoding of the
// arguments. Canonical JSON is the transport's own encoding (encoding/json)
// re-encoded through a generic value so that object keys are always sorted,
// independent of map insertion order or struct field order.
package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/zeebo/xxh3"

	"github.com/arloliu/livesub/types"
)

// Of returns the identity of (ref, args).
//
// A nil args value is encoded as the empty object, so Of(q, nil) == Of(q, types.Args{}).
//
// Parameters:
//   - ref: Function reference; only its name participates in the identity
//   - args: Arguments (types.Args, any map with string keys, or a struct)
//
// Returns:
//   - types.Identity: "name:canonicalJSON"
//   - error: wraps types.ErrInvalidFunctionReference or types.ErrInvalidArgs
func Of(ref types.FunctionReference, args any) (types.Identity, error) {
	if ref == nil || ref.FunctionName() == "" {
		return "", fmt.Errorf("%w: reference has no function name", types.ErrInvalidFunctionReference)
	}

	canonical, err := Canonical(args)
	if err != nil {
		return "", err
	}

	return types.Identity(ref.FunctionName() + ":" + string(canonical)), nil
}

// Canonical returns the canonical JSON encoding of args.
//
// Returns:
//   - []byte: Encoding with sorted object keys and numbers preserved verbatim
//   - error: wraps types.ErrInvalidArgs when args cannot be encoded
func Canonical(args any) ([]byte, error) {
	if isNil(args) {
		return []byte("{}"), nil
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgs, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgs, err)
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgs, err)
	}

	return out, nil
}

// ToArgs converts an arbitrary argument value into types.Args through the
// canonical encoding. Nil becomes an empty Args.
//
// Returns:
//   - types.Args: Decoded arguments (numbers are json.Number)
//   - error: wraps types.ErrInvalidArgs when args is not a JSON object
func ToArgs(args any) (types.Args, error) {
	if a, ok := args.(types.Args); ok {
		if a == nil {
			return types.Args{}, nil
		}

		return a, nil
	}

	canonical, err := Canonical(args)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(canonical))
	dec.UseNumber()

	var out types.Args
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: arguments must encode to a JSON object: %w", types.ErrInvalidArgs, err)
	}
	if out == nil {
		out = types.Args{}
	}

	return out, nil
}

// Fingerprint returns a 64-bit xxh3 hash of id.
//
// Useful as a compact, log-friendly stand-in for long identities.
func Fingerprint(id types.Identity) uint64 {
	return xxh3.HashString(string(id))
}

// Short returns the fingerprint of id as a fixed-width hex string.
func Short(id types.Identity) string {
	s := strconv.FormatUint(Fingerprint(id), 16)
	for len(s) < 16 {
		s = "0" + s
	}

	return s
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	if a, ok := v.(types.Args); ok && a == nil {
		return true
	}

	return false
}
