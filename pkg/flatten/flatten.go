// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package flatten converts nested documents to flat key/value records
// with dot-joined keys, and back.
package flatten

import (
	"encoding/json"
	"strings"

	"github.com/zeebo/errs"
)

var (
	// Error is the default flatten error class.
	Error = errs.Class("flatten error")

	// ErrInvalidKey is returned when a key contains a literal dot, which
	// is ambiguous with the path separator and therefore unsupported.
	ErrInvalidKey = errs.Class("invalid key")
)

// Record is a flat mapping with dot-joined composite keys.
type Record map[string]interface{}

const sep = "."

// Flatten recursively flattens every nested mapping in doc, joining
// keys with dots. Array values are kept whole, not exploded into
// additional keys; scalars pass through unchanged.
func Flatten(doc map[string]interface{}) (Record, error) {
	all := func(string) bool { return true }

	out := Record{}
	if err := walk(doc, "", all, all, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FlattenFields emits only the listed top-level fields of doc. A listed
// field with a mapping value is not decomposed: it is kept whole as a
// JSON text blob so the record stays representable as one tabular cell
// per field.
func FlattenFields(doc map[string]interface{}, fields []string) (Record, error) {
	included := make(map[string]bool, len(fields))
	for _, field := range fields {
		included[field] = true
	}

	out := Record{}
	err := walk(doc, "",
		func(key string) bool { return included[key] },
		func(string) bool { return false },
		out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walk is the single flattening algorithm both modes go through. The
// include predicate filters top-level keys; the descend predicate
// decides whether nested mappings under a top-level key are decomposed
// into dot paths or serialized whole. Sharing the walk keeps the
// key-joining behavior of the two modes from diverging.
func walk(doc map[string]interface{}, prefix string, include, descend func(topKey string) bool, out Record) error {
	for key, value := range doc {
		if strings.Contains(key, sep) {
			return ErrInvalidKey.New("key %q contains a %q", key, sep)
		}

		flat := key
		if prefix != "" {
			flat = prefix + sep + key
		}
		top := topKey(flat)
		if !include(top) {
			continue
		}

		nested, isMap := value.(map[string]interface{})
		switch {
		case isMap && descend(top):
			if err := walk(nested, flat, include, descend, out); err != nil {
				return err
			}
		case isMap:
			blob, err := json.Marshal(nested)
			if err != nil {
				return Error.Wrap(err)
			}
			out[flat] = string(blob)
		default:
			out[flat] = value
		}
	}
	return nil
}

func topKey(flat string) string {
	if i := strings.Index(flat, sep); i >= 0 {
		return flat[:i]
	}
	return flat
}

// Unflatten splits the dot-joined keys of a record back into nested
// mappings. It is the inverse of Flatten for any document whose leaf
// keys contain no literal dots.
func Unflatten(record Record) (map[string]interface{}, error) {
	doc := map[string]interface{}{}

	for flat, value := range record {
		parts := strings.Split(flat, sep)
		current := doc
		for _, part := range parts[:len(parts)-1] {
			child, ok := current[part].(map[string]interface{})
			if !ok {
				if _, taken := current[part]; taken {
					return nil, Error.New("key %q conflicts with a scalar value", flat)
				}
				child = map[string]interface{}{}
				current[part] = child
			}
			current = child
		}

		leaf := parts[len(parts)-1]
		if _, taken := current[leaf]; taken {
			return nil, Error.New("key %q conflicts with a nested mapping", flat)
		}
		current[leaf] = value
	}
	return doc, nil
}
