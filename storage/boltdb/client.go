// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package boltdb implements the key/value store on top of a local Bolt
// database file.
package boltdb

import (
	"context"
	"time"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"

	"lookupd.io/lookupd/storage"
)

var defaultTimeout = 1 * time.Second

const (
	// fileMode sets permissions so owner can read and write
	fileMode = 0600

	bucketName = "lookupd"
)

// Client is the storage interface for the Bolt database.
type Client struct {
	logger *zap.Logger
	db     *bolt.DB
	Path   string
}

// New instantiates a new BoltDB client.
func New(logger *zap.Logger, path string) (*Client, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{
		logger: logger,
		db:     db,
		Path:   path,
	}, nil
}

// Put adds a key/value to the bucket, replacing any existing value.
func (client *Client) Put(ctx context.Context, key storage.Key, value storage.Value) error {
	if key.IsZero() {
		return storage.ErrEmptyKey.New("")
	}
	return client.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put(key, value)
	})
}

// Get looks up the provided key from the bucket, returning its value.
func (client *Client) Get(ctx context.Context, key storage.Key) (storage.Value, error) {
	if key.IsZero() {
		return nil, storage.ErrEmptyKey.New("")
	}
	var value storage.Value
	err := client.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get(key)
		if data == nil {
			return storage.ErrKeyNotFound.New("%q", key)
		}
		value = storage.CloneValue(storage.Value(data))
		return nil
	})
	return value, err
}

// Delete deletes a key/value pair from the bucket.
func (client *Client) Delete(ctx context.Context, key storage.Key) error {
	if key.IsZero() {
		return storage.ErrEmptyKey.New("")
	}
	return client.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get(key) == nil {
			return storage.ErrKeyNotFound.New("%q", key)
		}
		return bucket.Delete(key)
	})
}

// List returns keys greater than or equal to first, in ascending order.
func (client *Client) List(ctx context.Context, first storage.Key, limit int) (storage.Keys, error) {
	var keys storage.Keys
	err := client.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket([]byte(bucketName)).Cursor()

		var key []byte
		if first.IsZero() {
			key, _ = cursor.First()
		} else {
			key, _ = cursor.Seek(first)
		}

		for ; key != nil; key, _ = cursor.Next() {
			keys = append(keys, storage.CloneKey(storage.Key(key)))
			if limit > 0 && len(keys) >= limit {
				break
			}
		}
		return nil
	})
	return keys, err
}

// Close closes a BoltDB client.
func (client *Client) Close() error {
	return client.db.Close()
}

// compiler check that Client implements KeyValueStore
var _ storage.KeyValueStore = (*Client)(nil)
