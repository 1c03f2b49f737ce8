// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

package editor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lookupd.io/lookupd/pkg/backup"
	"lookupd.io/lookupd/pkg/editor"
	"lookupd.io/lookupd/pkg/lookup"
	"lookupd.io/lookupd/pkg/lookup/testmeta"
	"lookupd.io/lookupd/storage/filestore"
)

var testRef = lookup.Reference{Name: "test.csv", Namespace: "search", Owner: "nobody"}

func newTestEditor(t *testing.T) (*editor.Editor, *backup.Store) {
	t.Helper()

	meta := testmeta.New()
	meta.Add("test.csv", "lookup_test", "")
	meta.Visible["search"] = []string{"search", "lookup_test"}

	log := zaptest.NewLogger(t)
	resolver := lookup.NewResolver(log, meta, t.TempDir())
	files := filestore.New(log)
	backups := backup.New(log, resolver, files)
	return editor.New(log, resolver, backups, files), backups
}

func TestSaveAndContents(t *testing.T) {
	ctx := context.Background()
	ed, backups := newTestEditor(t)

	// the first save of a missing file takes no backup
	require.NoError(t, ed.Save(ctx, testRef, []byte("a,b\n1,2\n"), "session"))

	versions, err := backups.ListVersions(ctx, testRef, "session")
	require.NoError(t, err)
	require.Empty(t, versions)

	content, err := ed.Contents(ctx, testRef, "session")
	require.NoError(t, err)
	require.Equal(t, []byte("a,b\n1,2\n"), content)
}

func TestSaveBacksUpPrevious(t *testing.T) {
	ctx := context.Background()
	ed, backups := newTestEditor(t)

	require.NoError(t, ed.Save(ctx, testRef, []byte("a,b\n1,2\n"), "session"))
	require.NoError(t, ed.Save(ctx, testRef, []byte("a,b\n3,4\n"), "session"))

	versions, err := backups.ListVersions(ctx, testRef, "session")
	require.NoError(t, err)
	require.Len(t, versions, 1)

	previous, err := backups.Retrieve(ctx, testRef, versions[0], "session")
	require.NoError(t, err)
	require.Equal(t, []byte("a,b\n1,2\n"), previous)
}

func TestContentsOfVersion(t *testing.T) {
	ctx := context.Background()
	ed, backups := newTestEditor(t)

	require.NoError(t, ed.Save(ctx, testRef, []byte("old\n"), "session"))
	require.NoError(t, ed.Save(ctx, testRef, []byte("new\n"), "session"))

	versions, err := backups.ListVersions(ctx, testRef, "session")
	require.NoError(t, err)
	require.Len(t, versions, 1)

	versioned := testRef
	versioned.Version = versions[0]
	content, err := ed.Contents(ctx, versioned, "session")
	require.NoError(t, err)
	require.Equal(t, []byte("old\n"), content)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	ed, backups := newTestEditor(t)

	require.NoError(t, ed.Save(ctx, testRef, []byte("old\n"), "session"))
	require.NoError(t, ed.Save(ctx, testRef, []byte("new\n"), "session"))

	versions, err := backups.ListVersions(ctx, testRef, "session")
	require.NoError(t, err)

	require.NoError(t, ed.Restore(ctx, testRef, versions[0], "session"))

	content, err := ed.Contents(ctx, testRef, "session")
	require.NoError(t, err)
	require.Equal(t, []byte("old\n"), content)
}

func TestContentsMissing(t *testing.T) {
	ctx := context.Background()
	ed, _ := newTestEditor(t)

	_, err := ed.Contents(ctx, testRef, "session")
	require.True(t, lookup.ErrNotFound.Has(err))
}
