package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Cursor(""))
	require.NoError(t, err)
	require.Equal(t, "null", string(b))

	b, err = json.Marshal(Cursor("01J0"))
	require.NoError(t, err)
	require.Equal(t, `"01J0"`, string(b))

	var c Cursor
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &c))
	require.Equal(t, Cursor("abc"), c)

	require.NoError(t, json.Unmarshal([]byte(`null`), &c))
	require.True(t, c.IsZero())

	require.Error(t, json.Unmarshal([]byte(`12`), &c))
}

func TestPaginationResultDecode(t *testing.T) {
	t.Parallel()

	var r PaginationResult
	raw := `{"page":[{"n":1},{"n":2}],"isDone":false,"continueCursor":"c2"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	require.Len(t, r.Page, 2)
	require.False(t, r.IsDone)
	require.Equal(t, Cursor("c2"), r.ContinueCursor)
	require.False(t, r.IsSplit())

	raw = `{"page":[],"isDone":false,"continueCursor":"c9","splitCursor":"c5"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	require.True(t, r.IsSplit())
	require.Equal(t, Cursor("c5"), r.SplitCursor)

	b, err := json.Marshal(PaginationResult{Page: []json.RawMessage{}, ContinueCursor: "x"})
	require.NoError(t, err)
	require.NotContains(t, string(b), "splitCursor")
}

func TestWithPagination(t *testing.T) {
	t.Parallel()

	args := Args{"listId": "l1"}
	out := WithPagination(args, PaginationOptions{NumItems: 10, EndCursor: "e"})

	require.Len(t, args, 1, "caller args must not be modified")
	require.Equal(t, "l1", out["listId"])

	opts, ok := out[PaginationArgKey].(map[string]any)
	require.True(t, ok)
	require.Nil(t, opts["cursor"])
	require.Equal(t, 10, opts["numItems"])
	require.Equal(t, "e", opts["endCursor"])

	out = WithPagination(nil, PaginationOptions{NumItems: 1})
	require.Len(t, out, 1)
}
