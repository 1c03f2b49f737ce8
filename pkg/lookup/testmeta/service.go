// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package testmeta implements an in-memory metadata service for tests.
package testmeta

import (
	"context"

	"lookupd.io/lookupd/pkg/lookup"
	"lookupd.io/lookupd/pkg/paths"
)

// Entry is one registered knowledge object.
type Entry struct {
	Name      string
	Namespace string
	Owner     string
}

// Service implements lookup.MetadataService in memory.
type Service struct {
	Entries []Entry
	// Visible maps a namespace to the apps visible from it, in
	// precedence order.
	Visible map[string][]string

	CallCount struct {
		ResolveObject   int
		ListVisibleApps int
	}
}

// New creates an empty metadata service.
func New() *Service {
	return &Service{Visible: map[string][]string{}}
}

// Add registers a knowledge object.
func (service *Service) Add(name, namespace, owner string) {
	service.Entries = append(service.Entries, Entry{
		Name:      name,
		Namespace: namespace,
		Owner:     paths.NormalizeOwner(owner),
	})
}

// Calls returns the total number of metadata calls made.
func (service *Service) Calls() int {
	return service.CallCount.ResolveObject + service.CallCount.ListVisibleApps
}

// ResolveObject returns the object registered in exactly the given scope.
func (service *Service) ResolveObject(ctx context.Context, name, namespace, owner, session string) (lookup.Object, error) {
	service.CallCount.ResolveObject++

	owner = paths.NormalizeOwner(owner)
	for _, entry := range service.Entries {
		if entry.Name == name && entry.Namespace == namespace && entry.Owner == owner {
			return lookup.Object{Namespace: entry.Namespace, Owner: entry.Owner, Exists: true}, nil
		}
	}
	return lookup.Object{}, nil
}

// ListVisibleApps returns the apps visible from namespace.
func (service *Service) ListVisibleApps(ctx context.Context, namespace, session string) ([]string, error) {
	service.CallCount.ListVisibleApps++
	return service.Visible[namespace], nil
}

var _ lookup.MetadataService = (*Service)(nil)
