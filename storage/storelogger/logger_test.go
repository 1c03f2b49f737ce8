// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

package storelogger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lookupd.io/lookupd/storage"
	"lookupd.io/lookupd/storage/teststore"
)

func TestPassthrough(t *testing.T) {
	ctx := context.Background()

	store := teststore.New()
	logged := New(zaptest.NewLogger(t), store)

	require.NoError(t, logged.Put(ctx, storage.Key("a"), storage.Value("1")))
	require.NoError(t, logged.Put(ctx, storage.Key("b"), storage.Value("2")))

	value, err := logged.Get(ctx, storage.Key("a"))
	require.NoError(t, err)
	require.Equal(t, storage.Value("1"), value)

	keys, err := logged.List(ctx, nil, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, keys.Strings())

	require.NoError(t, logged.Delete(ctx, storage.Key("a")))
	_, err = logged.Get(ctx, storage.Key("a"))
	require.True(t, storage.ErrKeyNotFound.Has(err))

	require.Equal(t, 2, store.CallCount.Put)
	require.Equal(t, 2, store.CallCount.Get)
	require.Equal(t, 1, store.CallCount.List)
	require.Equal(t, 1, store.CallCount.Delete)
}
