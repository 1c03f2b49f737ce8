// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package lookup resolves logical lookup references to the physical
// locations of their datasets.
package lookup

import (
	"github.com/zeebo/errs"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"
)

var (
	// Error is the default lookup error class.
	Error = errs.Class("lookup error")

	// ErrNotFound is returned when no knowledge object matches a
	// reference under any visible scope, or a backup version does not
	// exist.
	ErrNotFound = errs.Class("lookup not found")

	// ErrAuth is returned when upstream rejects the supplied session.
	ErrAuth = errs.Class("authentication failed")

	// ErrConnection is returned when upstream is unreachable or the
	// call timed out.
	ErrConnection = errs.Class("service unreachable")

	mon = monkit.Package()
)

// Reference identifies a logical lookup dataset independent of its
// physical location.
type Reference struct {
	// Name is the dataset name, e.g. "test.csv".
	Name string
	// Namespace is the application context the dataset is requested
	// from; empty means the hosting application.
	Namespace string
	// Owner is the user context; empty, whitespace or "nobody" mean the
	// global scope.
	Owner string
	// Version optionally names a backed up snapshot instead of the live
	// dataset.
	Version string
}

// ResolvedLocation is the physical location of a dataset after the
// sharing and inheritance rules have been applied. The owning scope may
// differ from the requested one.
type ResolvedLocation struct {
	PhysicalPath    string
	OwningNamespace string
	OwningOwner     string
}
