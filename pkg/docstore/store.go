// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package docstore implements document-backed lookup collections on top
// of a key/value store.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"lookupd.io/lookupd/pkg/paths"
	"lookupd.io/lookupd/storage"
)

var (
	// Error is the default docstore error class.
	Error = errs.Class("docstore error")

	// ErrDocumentNotFound is returned when a document or collection does
	// not exist.
	ErrDocumentNotFound = errs.Class("document not found")

	mon = monkit.Package()
)

const (
	// KeyField is the store-managed metadata field carrying a document's
	// unique identifier.
	KeyField = "_key"
	// UserField is the store-managed metadata field carrying a
	// document's ownership attribution.
	UserField = "_user"

	collPrefix   = "coll/"
	schemaPrefix = "transform/"

	listPageSize = 100
)

// Document is a nested document held in a collection.
type Document map[string]interface{}

// Store keeps JSON documents in collections backed by a KeyValueStore.
type Store struct {
	log *zap.Logger
	db  storage.KeyValueStore
}

// New creates a document store around db.
func New(log *zap.Logger, db storage.KeyValueStore) *Store {
	return &Store{log: log, db: db}
}

func docKey(collection, id string) storage.Key {
	return storage.Key(collPrefix + collection + "/" + id)
}

// Put stores a document under the given id. The owner becomes the
// document's user attribution; empty means the global scope.
func (store *Store) Put(ctx context.Context, collection, id, owner string, doc Document) (err error) {
	defer mon.Task()(&ctx)(&err)

	stored := Document{}
	for key, value := range doc {
		if key == KeyField {
			continue
		}
		stored[key] = value
	}
	stored[UserField] = paths.OwnerDir(owner)

	data, err := json.Marshal(stored)
	if err != nil {
		return Error.Wrap(err)
	}
	return store.db.Put(ctx, docKey(collection, id), data)
}

// Get returns the document with the given id; the metadata fields are
// filled in on the way out.
func (store *Store) Get(ctx context.Context, collection, id string) (_ Document, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := store.db.Get(ctx, docKey(collection, id))
	if storage.ErrKeyNotFound.Has(err) {
		return nil, ErrDocumentNotFound.New("%s/%s", collection, id)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return decodeDocument(id, data)
}

// Delete removes the document with the given id.
func (store *Store) Delete(ctx context.Context, collection, id string) (err error) {
	defer mon.Task()(&ctx)(&err)

	err = store.db.Delete(ctx, docKey(collection, id))
	if storage.ErrKeyNotFound.Has(err) {
		return ErrDocumentNotFound.New("%s/%s", collection, id)
	}
	return Error.Wrap(err)
}

// List returns a lazy cursor over the documents of a collection in id
// order. The cursor pages through the keyspace, so the collection is
// never buffered whole.
func (store *Store) List(ctx context.Context, collection string) *Cursor {
	return &Cursor{
		store:  store,
		prefix: collPrefix + collection + "/",
	}
}

// decodeDocument parses a stored document, preserving number precision,
// and injects the id metadata field.
func decodeDocument(id string, data []byte) (Document, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, Error.Wrap(err)
	}
	doc[KeyField] = id
	return doc, nil
}

// Cursor iterates over the documents of one collection. It is
// restartable via Reset and follows the bufio.Scanner error idiom.
type Cursor struct {
	store  *Store
	prefix string

	next storage.Key
	page storage.Keys
	pos  int
	done bool
	err  error
}

// Next returns the next document, or false when the collection is
// exhausted or an error occurred; Err tells the two apart.
func (cursor *Cursor) Next(ctx context.Context) (Document, bool) {
	if cursor.err != nil {
		return nil, false
	}

	if cursor.pos >= len(cursor.page) {
		if cursor.done || !cursor.fetch(ctx) {
			return nil, false
		}
	}

	key := cursor.page[cursor.pos]
	cursor.pos++

	data, err := cursor.store.db.Get(ctx, key)
	if err != nil {
		cursor.err = Error.Wrap(err)
		return nil, false
	}

	id := strings.TrimPrefix(key.String(), cursor.prefix)
	doc, err := decodeDocument(id, data)
	if err != nil {
		cursor.err = err
		return nil, false
	}
	return doc, true
}

// fetch loads the next page of keys belonging to the collection.
func (cursor *Cursor) fetch(ctx context.Context) bool {
	first := cursor.next
	if first.IsZero() {
		first = storage.Key(cursor.prefix)
	}

	keys, err := cursor.store.db.List(ctx, first, listPageSize)
	if err != nil {
		cursor.err = Error.Wrap(err)
		return false
	}

	cursor.page = cursor.page[:0]
	for _, key := range keys {
		if !strings.HasPrefix(key.String(), cursor.prefix) {
			cursor.done = true
			break
		}
		cursor.page = append(cursor.page, key)
	}
	if len(keys) < listPageSize {
		cursor.done = true
	}

	if len(cursor.page) == 0 {
		cursor.done = true
		return false
	}

	cursor.pos = 0
	cursor.next = storage.NextKey(cursor.page[len(cursor.page)-1])
	return true
}

// Reset rewinds the cursor to the start of the collection.
func (cursor *Cursor) Reset() {
	cursor.next = nil
	cursor.page = nil
	cursor.pos = 0
	cursor.done = false
	cursor.err = nil
}

// Err returns the first error encountered during iteration.
func (cursor *Cursor) Err() error { return cursor.err }
