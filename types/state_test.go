package types

import "testing"

func TestQueryStatusString(t *testing.T) {
	tests := []struct {
		status QueryStatus
		want   string
	}{
		{StatusIdle, "Idle"},
		{StatusLoading, "Loading"},
		{StatusSuccess, "Success"},
		{StatusError, "Error"},
		{QueryStatus(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("QueryStatus.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionStateString(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{SessionUninitialized, "Uninitialized"},
		{SessionLoadingFirstPage, "LoadingFirstPage"},
		{SessionReady, "Ready"},
		{SessionLoadingMore, "LoadingMore"},
		{SessionSplitting, "Splitting"},
		{SessionPaused, "Paused"},
		{SessionDisposed, "Disposed"},
		{SessionState(-1), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("SessionState.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaginationStatusString(t *testing.T) {
	tests := []struct {
		status PaginationStatus
		want   string
	}{
		{PaginationIdle, "Idle"},
		{PaginationLoadingFirstPage, "LoadingFirstPage"},
		{PaginationCanLoadMore, "CanLoadMore"},
		{PaginationLoadingMore, "LoadingMore"},
		{PaginationExhausted, "Exhausted"},
		{PaginationStatus(42), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("PaginationStatus.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
