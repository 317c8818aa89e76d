package backend

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	livesubtest "github.com/arloliu/livesub/testing"
	"github.com/arloliu/livesub/types"
)

func newTestServer(t *testing.T, cfg *Config) *Server {
	t.Helper()

	s, err := NewServer(NewMemoryStorage(), cfg, WithLogger(livesubtest.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

// seed inserts n items into table and returns their ids in order.
func seed(t *testing.T, db *DB, table string, n int) []string {
	t.Helper()

	ids := make([]string, n)
	for i := range ids {
		id, err := db.Insert(t.Context(), table, map[string]any{"n": i})
		require.NoError(t, err)
		ids[i] = id
	}

	return ids
}

func pageIDs(t *testing.T, res types.PaginationResult) []string {
	t.Helper()

	out := make([]string, 0, len(res.Page))
	for _, raw := range res.Page {
		var doc struct {
			ID string `json:"_id"`
		}
		require.NoError(t, json.Unmarshal(raw, &doc))
		out = append(out, doc.ID)
	}

	return out
}

func pageArgs(cursor, end types.Cursor, n int) types.Args {
	return types.WithPagination(nil, types.PaginationOptions{Cursor: cursor, NumItems: n, EndCursor: end})
}

// pushes records the results of a subscription.
type pushes struct {
	values []string
	errs   []error
}

func (p *pushes) push(raw json.RawMessage, err error) {
	if err != nil {
		p.errs = append(p.errs, err)
		return
	}
	p.values = append(p.values, string(raw))
}

func counterQuery(table string) QueryFunc {
	return func(qc *QueryCtx, _ types.Args) (any, error) {
		docs, err := qc.DB.Collect(qc, table)
		if err != nil {
			return nil, err
		}

		return len(docs), nil
	}
}

func insertMutation(table string) MutationFunc {
	return func(mc *MutationCtx, args types.Args) (any, error) {
		if fail, _ := args["fail"].(bool); fail {
			return nil, fmt.Errorf("refusing to insert")
		}

		return mc.DB.Insert(mc, table, args)
	}
}
