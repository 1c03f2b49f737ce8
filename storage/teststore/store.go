// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package teststore implements an in-memory key/value store for tests.
package teststore

import (
	"context"
	"sort"

	"lookupd.io/lookupd/storage"
)

// ListItem is a single key/value pair held by the store.
type ListItem struct {
	Key   storage.Key
	Value storage.Value
}

// Client implements an in-memory key value store.
type Client struct {
	Items     []ListItem
	CallCount struct {
		Get    int
		Put    int
		List   int
		Delete int
		Close  int
	}
}

// New creates a new in-memory key-value store.
func New() *Client { return &Client{} }

// indexOf finds index of key or where it could be inserted.
func (store *Client) indexOf(key storage.Key) (int, bool) {
	i := sort.Search(len(store.Items), func(k int) bool {
		return !store.Items[k].Key.Less(key)
	})

	if i >= len(store.Items) {
		return i, false
	}
	return i, store.Items[i].Key.Equal(key)
}

// Put adds a value to store.
func (store *Client) Put(ctx context.Context, key storage.Key, value storage.Value) error {
	store.CallCount.Put++
	if key.IsZero() {
		return storage.ErrEmptyKey.New("")
	}

	keyIndex, found := store.indexOf(key)
	if found {
		store.Items[keyIndex].Value = storage.CloneValue(value)
		return nil
	}

	store.Items = append(store.Items, ListItem{})
	copy(store.Items[keyIndex+1:], store.Items[keyIndex:])
	store.Items[keyIndex] = ListItem{
		Key:   storage.CloneKey(key),
		Value: storage.CloneValue(value),
	}
	return nil
}

// Get gets a value from the store.
func (store *Client) Get(ctx context.Context, key storage.Key) (storage.Value, error) {
	store.CallCount.Get++
	if key.IsZero() {
		return nil, storage.ErrEmptyKey.New("")
	}

	keyIndex, found := store.indexOf(key)
	if !found {
		return nil, storage.ErrKeyNotFound.New("%q", key)
	}
	return storage.CloneValue(store.Items[keyIndex].Value), nil
}

// Delete deletes key and the value.
func (store *Client) Delete(ctx context.Context, key storage.Key) error {
	store.CallCount.Delete++
	if key.IsZero() {
		return storage.ErrEmptyKey.New("")
	}

	keyIndex, found := store.indexOf(key)
	if !found {
		return storage.ErrKeyNotFound.New("%q", key)
	}

	copy(store.Items[keyIndex:], store.Items[keyIndex+1:])
	store.Items = store.Items[:len(store.Items)-1]
	return nil
}

// List returns keys greater than or equal to first, in ascending order.
func (store *Client) List(ctx context.Context, first storage.Key, limit int) (storage.Keys, error) {
	store.CallCount.List++

	start, _ := store.indexOf(first)
	var keys storage.Keys
	for _, item := range store.Items[start:] {
		keys = append(keys, storage.CloneKey(item.Key))
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	return keys, nil
}

// Close closes the store.
func (store *Client) Close() error {
	store.CallCount.Close++
	return nil
}

var _ storage.KeyValueStore = (*Client)(nil)
