package types

// QueryStatus is the authoritative state of a single-query binding.
//
// Exactly one of loading, data and error is meaningful at a time; StatusIdle is
// the fourth state used while the arguments are the skip sentinel.
type QueryStatus int

const (
	// StatusIdle means the query is skipped and no subscription exists.
	StatusIdle QueryStatus = iota

	// StatusLoading means a subscription exists but no result arrived yet.
	StatusLoading

	// StatusSuccess means Data holds the latest result.
	StatusSuccess

	// StatusError means Err holds the latest backend error.
	StatusError
)

// String returns the string representation of the status.
func (s QueryStatus) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusLoading:
		return "Loading"
	case StatusSuccess:
		return "Success"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// SessionState is the lifecycle state of a pagination session.
//
// States follow this progression:
//
//	Uninitialized → LoadingFirstPage → Ready ⇄ LoadingMore ⇄ Splitting → Disposed
//
// Paused is entered while the arguments are the skip sentinel; pages are kept.
type SessionState int

const (
	// SessionUninitialized is the state before Start.
	SessionUninitialized SessionState = iota

	// SessionLoadingFirstPage means the first page was requested and has not resolved.
	SessionLoadingFirstPage

	// SessionReady means every page has resolved.
	SessionReady

	// SessionLoadingMore means a trailing page requested by LoadMore is pending.
	SessionLoadingMore

	// SessionSplitting means replacement pages of a split are pending.
	SessionSplitting

	// SessionPaused means activity is suspended by the skip sentinel.
	SessionPaused

	// SessionDisposed is terminal: every page subscription was released.
	SessionDisposed
)

// String returns the string representation of the state.
func (s SessionState) String() string {
	switch s {
	case SessionUninitialized:
		return "Uninitialized"
	case SessionLoadingFirstPage:
		return "LoadingFirstPage"
	case SessionReady:
		return "Ready"
	case SessionLoadingMore:
		return "LoadingMore"
	case SessionSplitting:
		return "Splitting"
	case SessionPaused:
		return "Paused"
	case SessionDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// PaginationStatus is the caller-facing status of a paginated binding.
type PaginationStatus int

const (
	// PaginationIdle means the query is skipped.
	PaginationIdle PaginationStatus = iota

	// PaginationLoadingFirstPage means the first page has not resolved.
	PaginationLoadingFirstPage

	// PaginationCanLoadMore means LoadMore will request another page.
	PaginationCanLoadMore

	// PaginationLoadingMore means a page is still pending.
	PaginationLoadingMore

	// PaginationExhausted means the backend reported the end of the result stream.
	PaginationExhausted
)

// String returns the string representation of the status.
func (s PaginationStatus) String() string {
	switch s {
	case PaginationIdle:
		return "Idle"
	case PaginationLoadingFirstPage:
		return "LoadingFirstPage"
	case PaginationCanLoadMore:
		return "CanLoadMore"
	case PaginationLoadingMore:
		return "LoadingMore"
	case PaginationExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}
