// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lookupd.io/lookupd/storage"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := New(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})
	return client
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	key := storage.Key("coll/widgets/1")
	value := storage.Value(`{"a":1}`)

	require.NoError(t, client.Put(ctx, key, value))

	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, value, got)

	require.NoError(t, client.Delete(ctx, key))

	_, err = client.Get(ctx, key)
	require.True(t, storage.ErrKeyNotFound.Has(err))

	err = client.Delete(ctx, key)
	require.True(t, storage.ErrKeyNotFound.Has(err))
}

func TestEmptyKey(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	err := client.Put(ctx, nil, storage.Value("value"))
	require.True(t, storage.ErrEmptyKey.Has(err))

	_, err = client.Get(ctx, nil)
	require.True(t, storage.ErrEmptyKey.Has(err))
}

func TestListOrderedWithLimit(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	for _, key := range []string{"b", "d", "a", "c"} {
		require.NoError(t, client.Put(ctx, storage.Key(key), storage.Value("v")))
	}

	keys, err := client.List(ctx, nil, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "d"}, keys.Strings())

	keys, err = client.List(ctx, storage.Key("b"), 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, keys.Strings())
}
