// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

package docstore

import (
	"context"
	"encoding/json"
	"strings"

	"lookupd.io/lookupd/pkg/flatten"
	"lookupd.io/lookupd/storage"
)

// FieldSchema is the ordered field list a transform definition declares
// for a collection; it fixes the column order of tabular exports.
type FieldSchema []string

// PutSchema registers the transform field list for a collection. Field
// names containing dots are rejected, they cannot name flat columns
// unambiguously.
func (store *Store) PutSchema(ctx context.Context, collection string, schema FieldSchema) (err error) {
	defer mon.Task()(&ctx)(&err)

	for _, field := range schema {
		if strings.Contains(field, ".") {
			return flatten.ErrInvalidKey.New("field %q contains a dot", field)
		}
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return Error.Wrap(err)
	}
	return store.db.Put(ctx, storage.Key(schemaPrefix+collection), data)
}

// GetSchema returns the transform field list registered for a
// collection, or nil when the collection has none.
func (store *Store) GetSchema(ctx context.Context, collection string) (_ FieldSchema, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := store.db.Get(ctx, storage.Key(schemaPrefix+collection))
	if storage.ErrKeyNotFound.Has(err) {
		return nil, nil
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var schema FieldSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, Error.Wrap(err)
	}
	return schema, nil
}
