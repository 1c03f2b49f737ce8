// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

package lookup

import (
	"context"
	"path"

	"go.uber.org/zap"

	"lookupd.io/lookupd/pkg/paths"
)

// Object is a knowledge object entry returned by the metadata service.
type Object struct {
	// Namespace is the application the object is physically stored in.
	Namespace string
	// Owner is the user scope the object is stored under; empty for the
	// global scope.
	Owner string
	// Exists reports whether a matching object was found.
	Exists bool
}

// MetadataService is the metadata lookup consumed by the resolver. The
// visibility graph walk stays behind this interface so it can be swapped
// for a fake in tests.
type MetadataService interface {
	// ResolveObject returns the owning scope of the named lookup as
	// registered in exactly the given namespace/owner scope.
	ResolveObject(ctx context.Context, name, namespace, owner, session string) (Object, error)

	// ListVisibleApps returns the applications whose shared objects are
	// visible from the given namespace, in precedence order.
	ListVisibleApps(ctx context.Context, namespace, session string) ([]string, error)
}

// Resolver determines the actual owning application and physical storage
// path of a lookup by consulting the metadata service.
//
// A resolver holds no mutable state across calls; callers running
// concurrent resolutions supply their own sessions.
type Resolver struct {
	log  *zap.Logger
	meta MetadataService
	root string
}

// NewResolver creates a resolver rooted at the platform storage root.
func NewResolver(log *zap.Logger, meta MetadataService, root string) *Resolver {
	return &Resolver{log: log, meta: meta, root: root}
}

// Resolve maps a reference to its physical location.
//
// The requested namespace and owner are only a search context: the
// object may physically live in another application when it is shared
// globally or along the app dependency chain, so the path is built from
// the owning scope the metadata service reports. When the reference
// names a version, the path is redirected to the backup hierarchy for
// the requested namespace and resolved owner. When wantBackupRoot is
// set the path is the backup directory of the lookup rather than the
// live file.
func (resolver *Resolver) Resolve(ctx context.Context, ref Reference, wantBackupRoot bool, session string) (_ ResolvedLocation, err error) {
	defer mon.Task()(&ctx)(&err)

	name := paths.Sanitize(ref.Name)
	namespace := paths.Sanitize(ref.Namespace)
	owner := paths.NormalizeOwner(paths.Sanitize(ref.Owner))
	if namespace == "" {
		namespace = paths.DefaultNamespace
	}

	object, err := resolver.resolveOwner(ctx, name, namespace, owner, session)
	if err != nil {
		return ResolvedLocation{}, err
	}

	location := ResolvedLocation{
		PhysicalPath:    paths.LookupFile(resolver.root, name, object.Namespace, object.Owner),
		OwningNamespace: object.Namespace,
		OwningOwner:     paths.NormalizeOwner(object.Owner),
	}

	lookupsDir := path.Dir(location.PhysicalPath)
	switch {
	case ref.Version != "":
		location.PhysicalPath = paths.BackupFile(lookupsDir, namespace, location.OwningOwner, name, ref.Version)
	case wantBackupRoot:
		location.PhysicalPath = paths.BackupDir(lookupsDir, namespace, location.OwningOwner, name)
	}

	resolver.log.Debug("resolved lookup",
		zap.String("name", name),
		zap.String("requested namespace", namespace),
		zap.String("owning namespace", location.OwningNamespace),
		zap.String("path", location.PhysicalPath),
	)
	return location, nil
}

// resolveOwner walks the visibility graph: the requested scope first,
// then the global scope of the requested namespace, then the global
// scope of every app visible from the requested namespace, in
// precedence order.
func (resolver *Resolver) resolveOwner(ctx context.Context, name, namespace, owner, session string) (Object, error) {
	object, err := resolver.meta.ResolveObject(ctx, name, namespace, owner, session)
	if err != nil {
		return Object{}, err
	}
	if object.Exists {
		return object, nil
	}

	// a user-scoped request falls back to the app-level object of the
	// requested namespace before walking the sharing chain
	if owner != "" {
		object, err = resolver.meta.ResolveObject(ctx, name, namespace, "", session)
		if err != nil {
			return Object{}, err
		}
		if object.Exists {
			return object, nil
		}
	}

	apps, err := resolver.meta.ListVisibleApps(ctx, namespace, session)
	if err != nil {
		return Object{}, err
	}
	for _, app := range apps {
		if app == namespace {
			continue
		}
		object, err := resolver.meta.ResolveObject(ctx, name, app, "", session)
		if err != nil {
			return Object{}, err
		}
		if object.Exists {
			return object, nil
		}
	}

	return Object{}, ErrNotFound.New("lookup %q is not visible from %q", name, namespace)
}
