// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package filestore implements the file storage layer for lookup files
// and their backups.
package filestore

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"
)

var (
	// Error is the default filestore error class.
	Error = errs.Class("filestore error")

	mon = monkit.Package()
)

const (
	filePermission = 0644
	dirPermission  = 0755
)

// Store reads and writes files under absolute paths produced by the
// lookup path builders.
type Store struct {
	log *zap.Logger
}

// New creates a file store.
func New(log *zap.Logger) *Store {
	return &Store{log: log}
}

// Read returns the full contents of the file at path. A missing file is
// reported via os.IsNotExist on the unwrapped cause.
func (store *Store) Read(ctx context.Context, path string) (_ []byte, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, Error.Wrap(err)
	}
	return data, nil
}

// Write atomically replaces the file at path with data. The data is
// staged in a temporary file in the target directory and renamed into
// place, so readers never observe a partial write.
func (store *Store) Write(ctx context.Context, path string, data []byte) (err error) {
	defer mon.Task()(&ctx)(&err)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return Error.Wrap(err)
	}

	file, err := ioutil.TempFile(dir, filepath.Base(path)+".partial.")
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, os.Remove(file.Name()))
		}
	}()

	if _, err := file.Write(data); err != nil {
		return Error.Wrap(errs.Combine(err, file.Close()))
	}
	if err := file.Sync(); err != nil {
		return Error.Wrap(errs.Combine(err, file.Close()))
	}
	if err := file.Chmod(filePermission); err != nil {
		return Error.Wrap(errs.Combine(err, file.Close()))
	}
	if err := file.Close(); err != nil {
		return Error.Wrap(err)
	}
	if err := os.Rename(file.Name(), path); err != nil {
		return Error.Wrap(err)
	}

	store.log.Debug("wrote file", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// Exists reports whether a file or directory exists at path.
func (store *Store) Exists(ctx context.Context, path string) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, Error.Wrap(err)
	}
	return true, nil
}

// ListChildren returns the names of the entries directly under path, in
// ascending order. A missing directory lists as empty.
func (store *Store) ListChildren(ctx context.Context, path string) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	infos, err := ioutil.ReadDir(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}
