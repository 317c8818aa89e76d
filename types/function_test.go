package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRef(t *testing.T) {
	t.Parallel()

	q := QueryRef("tasks:list")
	require.Equal(t, "tasks:list", q.FunctionName())
	require.Equal(t, KindQuery, q.Kind())
	require.Equal(t, "query tasks:list", q.String())

	m := MutationRef("tasks:create")
	require.Equal(t, KindMutation, m.Kind())
	require.Equal(t, "mutation", m.Kind().String())
	require.Equal(t, "unknown", FunctionKind(0).String())
}

func TestValidateReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ref     FunctionReference
		want    FunctionKind
		wantErr bool
	}{
		{"valid query", QueryRef("tasks:list"), KindQuery, false},
		{"valid mutation", MutationRef("tasks:create"), KindMutation, false},
		{"nil reference", nil, KindQuery, true},
		{"empty name", QueryRef(""), KindQuery, true},
		{"blank name", QueryRef("   "), KindQuery, true},
		{"mutation used as query", MutationRef("tasks:create"), KindQuery, true},
		{"query used as mutation", QueryRef("tasks:list"), KindMutation, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReference(tt.ref, tt.want)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidFunctionReference))
		})
	}
}

func TestListener(t *testing.T) {
	t.Parallel()

	var got []Result
	l := NewListener(func(r Result) { got = append(got, r) })
	require.True(t, l.Valid())

	l.Notify(Result{Data: []byte(`1`)})
	require.Len(t, got, 1)
	require.JSONEq(t, `1`, string(got[0].Data))

	var nilListener *Listener
	require.False(t, nilListener.Valid())
	require.NotPanics(t, func() { nilListener.Notify(Result{}) })
	require.False(t, NewListener(nil).Valid())
}

func TestHandleFunc(t *testing.T) {
	t.Parallel()

	calls := 0
	var h Handle = HandleFunc(func() error {
		calls++
		return nil
	})
	require.NoError(t, h.Close())
	require.Equal(t, 1, calls)
}
