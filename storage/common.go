// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package storage defines the key/value store interface backing document
// collections.
package storage

import (
	"context"

	"github.com/zeebo/errs"
)

// Key is the type for the keys in a KeyValueStore.
type Key []byte

// Value is the type for the values in a KeyValueStore.
type Value []byte

// Keys is the type for a slice of keys in a KeyValueStore.
type Keys []Key

var (
	// ErrKeyNotFound is returned when a key is not found in the store.
	ErrKeyNotFound = errs.Class("key not found")
	// ErrEmptyKey is returned when an empty key is passed to the store.
	ErrEmptyKey = errs.Class("empty key")
)

// KeyValueStore describes a lexically ordered key/value store.
type KeyValueStore interface {
	// Put adds a value to the provided key, replacing any existing value.
	Put(ctx context.Context, key Key, value Value) error
	// Get returns the value for a key, or ErrKeyNotFound.
	Get(ctx context.Context, key Key) (Value, error)
	// Delete removes a key and its value, or returns ErrKeyNotFound.
	Delete(ctx context.Context, key Key) error
	// List returns up to limit keys that are greater than or equal to
	// first, in ascending order. A non-positive limit means no bound.
	List(ctx context.Context, first Key, limit int) (Keys, error)
	// Close closes the store.
	Close() error
}

// IsZero returns true if the key is its zero value.
func (k Key) IsZero() bool { return len(k) == 0 }

// String implements the Stringer interface.
func (k Key) String() string { return string(k) }

// Less returns true if the key is lexically smaller than other.
func (k Key) Less(other Key) bool { return string(k) < string(other) }

// Equal returns true if the keys are equal.
func (k Key) Equal(other Key) bool { return string(k) == string(other) }

// Strings converts keys to a slice of strings.
func (keys Keys) Strings() []string {
	result := make([]string, len(keys))
	for i, key := range keys {
		result[i] = string(key)
	}
	return result
}

// NextKey returns the successive key.
func NextKey(key Key) Key {
	return append(append(key[:0:0], key...), 0)
}

// CloneKey creates a copy of key.
func CloneKey(key Key) Key { return append(key[:0:0], key...) }

// CloneValue creates a copy of value.
func CloneValue(value Value) Value { return append(value[:0:0], value...) }
