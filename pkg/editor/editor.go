// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package editor reads and replaces lookup datasets, taking a backup
// before every replacement.
package editor

import (
	"context"
	"os"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"lookupd.io/lookupd/pkg/backup"
	"lookupd.io/lookupd/pkg/lookup"
	"lookupd.io/lookupd/storage/filestore"
)

var (
	// Error is the default editor error class.
	Error = errs.Class("editor error")

	mon = monkit.Package()
)

// Editor ties resolution, file storage and backups together for
// file-backed lookups.
type Editor struct {
	log      *zap.Logger
	resolver *lookup.Resolver
	backups  *backup.Store
	files    *filestore.Store
}

// New creates an editor.
func New(log *zap.Logger, resolver *lookup.Resolver, backups *backup.Store, files *filestore.Store) *Editor {
	return &Editor{log: log, resolver: resolver, backups: backups, files: files}
}

// Contents returns the raw contents of a lookup file. A reference with
// a version reads the backed up snapshot instead of the live file.
func (editor *Editor) Contents(ctx context.Context, ref lookup.Reference, session string) (_ []byte, err error) {
	defer mon.Task()(&ctx)(&err)

	location, err := editor.resolver.Resolve(ctx, ref, false, session)
	if err != nil {
		return nil, err
	}

	content, err := editor.files.Read(ctx, location.PhysicalPath)
	if os.IsNotExist(err) {
		return nil, lookup.ErrNotFound.New("lookup file %q is missing at %q", ref.Name, location.PhysicalPath)
	}
	return content, err
}

// Save replaces the contents of a lookup file. The previous contents
// are backed up first, so every mutation stays recoverable; saving a
// lookup that has no file yet skips the backup.
func (editor *Editor) Save(ctx context.Context, ref lookup.Reference, content []byte, session string) (err error) {
	defer mon.Task()(&ctx)(&err)

	live := ref
	live.Version = ""
	location, err := editor.resolver.Resolve(ctx, live, false, session)
	if err != nil {
		return err
	}

	previous, err := editor.files.Read(ctx, location.PhysicalPath)
	switch {
	case err == nil:
		version, err := editor.backups.CreateBackup(ctx, live, &location, previous, session)
		if err != nil {
			return err
		}
		editor.log.Info("backed up lookup before save",
			zap.String("name", ref.Name),
			zap.String("version", version),
		)
	case os.IsNotExist(err):
	default:
		return err
	}

	return editor.files.Write(ctx, location.PhysicalPath, content)
}

// Restore replaces the live contents of a lookup with one of its backed
// up versions. The current contents are backed up first like any other
// save.
func (editor *Editor) Restore(ctx context.Context, ref lookup.Reference, version, session string) (err error) {
	defer mon.Task()(&ctx)(&err)

	content, err := editor.backups.Retrieve(ctx, ref, version, session)
	if err != nil {
		return err
	}
	return editor.Save(ctx, ref, content, session)
}
