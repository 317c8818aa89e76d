package types

import "encoding/json"

// PaginationArgKey is the argument name under which pagination options are sent.
const PaginationArgKey = "paginationOpts"

// Cursor is an opaque backend position token. The empty cursor encodes JSON null:
// the start of the result stream as a start cursor, an open range as an end cursor.
type Cursor string

// IsZero reports whether c is the null cursor.
func (c Cursor) IsZero() bool { return c == "" }

// Value returns the cursor as a JSON-ready value (nil for the null cursor).
func (c Cursor) Value() any {
	if c == "" {
		return nil
	}

	return string(c)
}

// MarshalJSON encodes the null cursor as null.
func (c Cursor) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value())
}

// UnmarshalJSON decodes null as the null cursor.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*c = ""
	} else {
		*c = Cursor(*s)
	}

	return nil
}

// PaginationOptions is the bounded range request of the pagination protocol.
//
// The page covers positions after Cursor up to and including EndCursor. With a
// null EndCursor the backend returns at most NumItems items.
type PaginationOptions struct {
	Cursor    Cursor `json:"cursor"`
	NumItems  int    `json:"numItems"`
	EndCursor Cursor `json:"endCursor"`
}

// Map returns the options in argument form.
func (o PaginationOptions) Map() map[string]any {
	return map[string]any{
		"cursor":    o.Cursor.Value(),
		"numItems":  o.NumItems,
		"endCursor": o.EndCursor.Value(),
	}
}

// PaginationResult is the backend response of the pagination protocol.
//
// A non-empty SplitCursor is a split directive: the requested range must be
// re-requested as [cursor, SplitCursor) and [SplitCursor, ContinueCursor).
type PaginationResult struct {
	Page           []json.RawMessage `json:"page"`
	IsDone         bool              `json:"isDone"`
	ContinueCursor Cursor            `json:"continueCursor"`
	SplitCursor    Cursor            `json:"splitCursor,omitempty"`
}

// IsSplit reports whether the result carries a split directive.
func (r PaginationResult) IsSplit() bool { return !r.SplitCursor.IsZero() }

// WithPagination returns a copy of args extended with pagination options.
// The caller's map is never modified.
func WithPagination(args Args, opts PaginationOptions) Args {
	out := make(Args, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	out[PaginationArgKey] = opts.Map()

	return out
}
