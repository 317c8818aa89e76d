package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	livesubtest "github.com/arloliu/livesub/testing"
)

func newJetStream(t *testing.T) jetstream.JetStream {
	t.Helper()

	_, nc := livesubtest.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	return js
}

func TestEnsureKVBucketWithRetry_Concurrent(t *testing.T) {
	js := newJetStream(t)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	const workers = 5

	var wg sync.WaitGroup
	kvs := make([]jetstream.KeyValue, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1) //nolint:revive // Standard pattern for concurrent operations
		go func(idx int) {
			defer wg.Done()
			kvs[idx], errs[idx] = EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
				Bucket:  "livesub-concurrent",
				History: 1,
			}, 3)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i], "worker %d", i)
		require.NotNil(t, kvs[i], "worker %d", i)
	}

	_, err := kvs[0].Put(ctx, "doc", []byte("v1"))
	require.NoError(t, err)

	entry, err := kvs[workers-1].Get(ctx, "doc")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), entry.Value())
}

func TestEnsureKVBucketWithRetry_CancelledContext(t *testing.T) {
	js := newJetStream(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{Bucket: "livesub-cancelled"}, 3)
	require.Error(t, err)
}

func TestKeysAndGetOrNil(t *testing.T) {
	js := newJetStream(t)
	ctx := t.Context()

	kv, err := EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{Bucket: "livesub-keys"}, 0)
	require.NoError(t, err)

	keys, err := Keys(ctx, kv)
	require.NoError(t, err)
	require.Empty(t, keys)

	value, err := GetOrNil(ctx, kv, "missing")
	require.NoError(t, err)
	require.Nil(t, value)

	_, err = kv.Put(ctx, "a", []byte("1"))
	require.NoError(t, err)
	_, err = kv.Put(ctx, "b", []byte("2"))
	require.NoError(t, err)

	keys, err = Keys(ctx, kv)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, keys)

	require.NoError(t, kv.Delete(ctx, "a"))

	value, err = GetOrNil(ctx, kv, "a")
	require.NoError(t, err)
	require.Nil(t, value)

	value, err = GetOrNil(ctx, kv, "b")
	require.NoError(t, err)
	require.Equal(t, []byte("2"), value)
}
