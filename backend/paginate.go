package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/arloliu/livesub/types"
)

// pin is the end cursor a subscription's unbounded page was fixed to by its
// first evaluation. Later evaluations answer the same range, so documents
// inserted inside it grow the page instead of shifting items to the next page.
type pin struct {
	mu     sync.Mutex
	cursor types.Cursor
}

func (p *pin) get() types.Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cursor
}

func (p *pin) setOnce(c types.Cursor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cursor.IsZero() {
		p.cursor = c
	}
}

// PaginationOpts extracts the pagination options from query arguments.
//
// Returns:
//   - types.PaginationOptions: Decoded options
//   - error: wraps ErrInvalidPagination when the options are missing or malformed
func PaginationOpts(args types.Args) (types.PaginationOptions, error) {
	var opts types.PaginationOptions

	raw, ok := args[types.PaginationArgKey]
	if !ok {
		return opts, fmt.Errorf("%w: missing %q argument", ErrInvalidPagination, types.PaginationArgKey)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return opts, fmt.Errorf("%w: %w", ErrInvalidPagination, err)
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("%w: %w", ErrInvalidPagination, err)
	}

	return opts, nil
}

// Paginate returns one page of table under the cursor contract:
//
//   - the page holds the documents with ids in (Cursor, EndCursor];
//   - without EndCursor it holds at most NumItems documents, and the first such
//     evaluation that is not done pins later evaluations of the same Reader to
//     its continue cursor;
//   - a bounded range holding more documents than the split threshold answers
//     with SplitCursor set to the middle id and ContinueCursor set to the end.
func (r *Reader) Paginate(ctx context.Context, table string, opts types.PaginationOptions) (types.PaginationResult, error) {
	if opts.NumItems <= 0 {
		return types.PaginationResult{}, fmt.Errorf("%w: numItems must be > 0, got %d", ErrInvalidPagination, opts.NumItems)
	}
	if opts.NumItems > r.cfg.MaxPageSize {
		opts.NumItems = r.cfg.MaxPageSize
	}

	docs, err := r.Collect(ctx, table)
	if err != nil {
		return types.PaginationResult{}, err
	}

	end := opts.EndCursor
	if end.IsZero() {
		end = r.pin.get()
	}

	start := sort.Search(len(docs), func(i int) bool {
		return opts.Cursor.IsZero() || docs[i].ID > string(opts.Cursor)
	})

	var stop int
	if end.IsZero() {
		stop = min(start+opts.NumItems, len(docs))
	} else {
		stop = sort.Search(len(docs), func(i int) bool { return docs[i].ID > string(end) })
		stop = max(stop, start)
		if count := stop - start; count > r.cfg.threshold(opts.NumItems) {
			mid := start + count/2 - 1

			return types.PaginationResult{
				Page:           []json.RawMessage{},
				ContinueCursor: end,
				SplitCursor:    types.Cursor(docs[mid].ID),
			}, nil
		}
	}

	res := types.PaginationResult{
		Page:   make([]json.RawMessage, 0, stop-start),
		IsDone: stop >= len(docs),
	}
	for _, doc := range docs[start:stop] {
		raw, err := json.Marshal(doc)
		if err != nil {
			return types.PaginationResult{}, fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
		}
		res.Page = append(res.Page, raw)
	}

	switch {
	case !end.IsZero():
		res.ContinueCursor = end
	case stop > start:
		res.ContinueCursor = types.Cursor(docs[stop-1].ID)
	default:
		res.ContinueCursor = opts.Cursor
	}

	if opts.EndCursor.IsZero() && !res.IsDone {
		r.pin.setOnce(res.ContinueCursor)
	}

	return res, nil
}
