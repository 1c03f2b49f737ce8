// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package redis implements the key/value store on top of a Redis server.
package redis

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-redis/redis"
	"github.com/zeebo/errs"

	"lookupd.io/lookupd/storage"
)

// Error is the default redis error class.
var Error = errs.Class("redis error")

// Client is the entrypoint into Redis.
type Client struct {
	db *redis.Client
}

// NewClient returns a configured Client instance, verifying a successful
// connection to redis.
func NewClient(address, password string, db int) (*Client, error) {
	client := &Client{
		db: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}

	if err := client.db.Ping().Err(); err != nil {
		return nil, Error.New("cannot connect to %q: %v", address, err)
	}

	return client, nil
}

// NewClientFrom returns a configured Client instance from a redis address
// of the form redis://host:port?db=n.
func NewClientFrom(address string) (*Client, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if u.Scheme != "redis" {
		return nil, Error.New("unsupported scheme %q", u.Scheme)
	}

	db := 0
	if dbarg := u.Query().Get("db"); dbarg != "" {
		db, err = strconv.Atoi(dbarg)
		if err != nil {
			return nil, Error.New("invalid db %q: %v", dbarg, err)
		}
	}

	password, _ := u.User.Password()
	return NewClient(u.Host, password, db)
}

// Put adds a value to the provided key.
func (client *Client) Put(ctx context.Context, key storage.Key, value storage.Value) error {
	if key.IsZero() {
		return storage.ErrEmptyKey.New("")
	}
	if err := client.db.Set(key.String(), []byte(value), 0).Err(); err != nil {
		return Error.New("put error: %v", err)
	}
	return nil
}

// Get looks up the provided key from redis, returning its value.
func (client *Client) Get(ctx context.Context, key storage.Key) (storage.Value, error) {
	if key.IsZero() {
		return nil, storage.ErrEmptyKey.New("")
	}
	value, err := client.db.Get(key.String()).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrKeyNotFound.New("%q", key)
	}
	if err != nil {
		return nil, Error.New("get error: %v", err)
	}
	return value, nil
}

// Delete deletes a key/value pair from redis.
func (client *Client) Delete(ctx context.Context, key storage.Key) error {
	if key.IsZero() {
		return storage.ErrEmptyKey.New("")
	}
	deleted, err := client.db.Del(key.String()).Result()
	if err != nil {
		return Error.New("delete error: %v", err)
	}
	if deleted == 0 {
		return storage.ErrKeyNotFound.New("%q", key)
	}
	return nil
}

// List returns keys greater than or equal to first, in ascending order.
//
// Redis keys are unordered, so the full keyspace is fetched and sorted;
// the stores backed by this client stay small enough for that to hold.
func (client *Client) List(ctx context.Context, first storage.Key, limit int) (storage.Keys, error) {
	all, err := client.db.Keys("*").Result()
	if err != nil {
		return nil, Error.New("list error: %v", err)
	}
	sort.Strings(all)

	var keys storage.Keys
	for _, key := range all {
		if !first.IsZero() && key < first.String() {
			continue
		}
		keys = append(keys, storage.Key(key))
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	return keys, nil
}

// Close closes a redis client.
func (client *Client) Close() error {
	return client.db.Close()
}

var _ storage.KeyValueStore = (*Client)(nil)
