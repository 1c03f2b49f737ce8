// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package backup computes, enumerates and writes versioned backups of
// lookup datasets.
package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"lookupd.io/lookupd/pkg/lookup"
	"lookupd.io/lookupd/pkg/paths"
	"lookupd.io/lookupd/storage/filestore"
)

var (
	// Error is the default backup error class.
	Error = errs.Class("backup error")

	// ErrConflict is returned when minting a fresh version identifier
	// kept colliding with existing ones.
	ErrConflict = errs.Class("version conflict")

	mon = monkit.Package()
)

// mintRetries bounds how often CreateBackup re-mints a version
// identifier after a collision.
const mintRetries = 3

// Store manages the backup hierarchy of lookup datasets. It holds no
// mutable state across calls; serialization of concurrent backups for
// the same dataset is the storage layer's obligation.
type Store struct {
	log      *zap.Logger
	resolver *lookup.Resolver
	files    *filestore.Store
}

// New creates a backup store.
func New(log *zap.Logger, resolver *lookup.Resolver, files *filestore.Store) *Store {
	return &Store{log: log, resolver: resolver, files: files}
}

// BackupDirectory returns the backup directory for a reference. A
// previously resolved location, when supplied, is reused instead of
// asking the metadata service again.
func (store *Store) BackupDirectory(ctx context.Context, ref lookup.Reference, resolved *lookup.ResolvedLocation, session string) (_ string, err error) {
	defer mon.Task()(&ctx)(&err)

	if resolved != nil {
		lookupsDir := path.Dir(resolved.PhysicalPath)
		return paths.BackupDir(lookupsDir, ref.Namespace, resolved.OwningOwner, ref.Name), nil
	}

	location, err := store.resolver.Resolve(ctx, ref, true, session)
	if err != nil {
		return "", err
	}
	return location.PhysicalPath, nil
}

// ListVersions returns the version identifiers of all backups of a
// reference, in ascending creation order.
func (store *Store) ListVersions(ctx context.Context, ref lookup.Reference, session string) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	dir, err := store.BackupDirectory(ctx, ref, nil, session)
	if err != nil {
		return nil, err
	}
	return store.files.ListChildren(ctx, dir)
}

// CreateBackup snapshots content under a freshly minted version that is
// unique and greater than every prior version of the reference. The
// write is atomic: a failed backup is never visible to ListVersions. A
// previously resolved location, when supplied, skips re-resolution.
func (store *Store) CreateBackup(ctx context.Context, ref lookup.Reference, resolved *lookup.ResolvedLocation, content []byte, session string) (version string, err error) {
	defer mon.Task()(&ctx)(&err)

	dir, err := store.BackupDirectory(ctx, ref, resolved, session)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < mintRetries; attempt++ {
		version = mintVersion()
		target := path.Join(dir, version)

		exists, err := store.files.Exists(ctx, target)
		if err != nil {
			return "", err
		}
		if exists {
			// wait out the clock before minting again
			time.Sleep(time.Microsecond)
			continue
		}

		if err := store.files.Write(ctx, target, content); err != nil {
			return "", err
		}
		store.log.Info("created backup",
			zap.String("name", ref.Name),
			zap.String("namespace", ref.Namespace),
			zap.String("version", version),
		)
		return version, nil
	}

	return "", ErrConflict.New("could not mint a fresh version for %q", ref.Name)
}

// Retrieve returns the content of one backed up version.
func (store *Store) Retrieve(ctx context.Context, ref lookup.Reference, version string, session string) (_ []byte, err error) {
	defer mon.Task()(&ctx)(&err)

	dir, err := store.BackupDirectory(ctx, ref, nil, session)
	if err != nil {
		return nil, err
	}

	content, err := store.files.Read(ctx, path.Join(dir, paths.Sanitize(version)))
	if os.IsNotExist(err) {
		return nil, lookup.ErrNotFound.New("no backup version %q of %q", version, ref.Name)
	}
	return content, err
}

// mintVersion returns an opaque version identifier. The zero-padded
// nanosecond timestamp sorts lexically in creation order.
func mintVersion() string {
	return fmt.Sprintf("%020d", time.Now().UnixNano())
}
