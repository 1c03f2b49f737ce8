// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package paths builds the physical storage paths for lookup files and
// their backups, sanitizing untrusted path segments first.
package paths

import (
	"path"
	"strings"
)

const (
	// DefaultNamespace is the application hosting this subsystem; it is
	// used whenever a request does not name a namespace.
	DefaultNamespace = "lookupd"

	// GlobalOwner is the owner directory name used for lookups that are
	// not private to a user.
	GlobalOwner = "nobody"

	appsDir    = "apps"
	usersDir   = "users"
	lookupsDir = "lookups"
	backupsDir = "lookup_file_backups"
)

// Sanitize removes every parent-directory traversal component from a
// path segment. Malformed input degrades to a safe segment, possibly
// empty; it is never rejected.
func Sanitize(segment string) string {
	segment = strings.ReplaceAll(segment, `\`, "/")

	var kept []string
	for _, part := range strings.Split(segment, "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "/")
}

// NormalizeOwner collapses the owner spellings that all mean the global
// scope (empty, whitespace-only and the literal "nobody") to the empty
// string. Every component that accepts an owner goes through here so the
// defaulting can never diverge.
func NormalizeOwner(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == GlobalOwner {
		return ""
	}
	return owner
}

// OwnerDir returns the directory name for an owner, using GlobalOwner
// for the global scope.
func OwnerDir(owner string) string {
	if NormalizeOwner(owner) == "" {
		return GlobalOwner
	}
	return owner
}

// LookupFile returns the physical path of a lookup file.
//
// Global lookups live under apps/<namespace>/lookups, per-user lookups
// under users/<owner>/<namespace>/lookups.
func LookupFile(root, name, namespace, owner string) string {
	name = Sanitize(name)
	namespace = Sanitize(namespace)
	owner = NormalizeOwner(Sanitize(owner))

	if namespace == "" {
		namespace = DefaultNamespace
	}

	if owner == "" {
		return path.Join(root, appsDir, namespace, lookupsDir, name)
	}
	return path.Join(root, usersDir, owner, namespace, lookupsDir, name)
}

// BackupDir returns the backup directory for a lookup, anchored under
// the lookups directory the resolved file lives in. The requested
// namespace is recorded in the path (it is the search context the backup
// was taken under) while the owner is the resolved one.
func BackupDir(lookupsPath, requestedNamespace, owner, name string) string {
	requestedNamespace = Sanitize(requestedNamespace)
	if requestedNamespace == "" {
		requestedNamespace = DefaultNamespace
	}
	return path.Join(lookupsPath, backupsDir, requestedNamespace, OwnerDir(Sanitize(owner)), Sanitize(name))
}

// BackupFile returns the path of one backed up version of a lookup.
func BackupFile(lookupsPath, requestedNamespace, owner, name, version string) string {
	return path.Join(BackupDir(lookupsPath, requestedNamespace, owner, name), Sanitize(version))
}
