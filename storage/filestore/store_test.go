// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWriteRead(t *testing.T) {
	ctx := context.Background()
	store := New(zaptest.NewLogger(t))

	path := filepath.Join(t.TempDir(), "apps", "search", "lookups", "test.csv")
	content := []byte("a,b\n1,2\n")

	require.NoError(t, store.Write(ctx, path, content))

	got, err := store.Read(ctx, path)
	require.NoError(t, err)
	require.Equal(t, content, got)

	// overwrite leaves no partial files behind
	require.NoError(t, store.Write(ctx, path, []byte("a,b\n3,4\n")))

	children, err := store.ListChildren(ctx, filepath.Dir(path))
	require.NoError(t, err)
	require.Equal(t, []string{"test.csv"}, children)
}

func TestReadMissing(t *testing.T) {
	ctx := context.Background()
	store := New(zaptest.NewLogger(t))

	_, err := store.Read(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	require.True(t, os.IsNotExist(err))
}

func TestListChildrenSorted(t *testing.T) {
	ctx := context.Background()
	store := New(zaptest.NewLogger(t))
	dir := t.TempDir()

	for _, name := range []string{"3", "1", "2"} {
		require.NoError(t, store.Write(ctx, filepath.Join(dir, name), []byte(name)))
	}

	children, err := store.ListChildren(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3"}, children)

	children, err = store.ListChildren(ctx, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Empty(t, children)
}
