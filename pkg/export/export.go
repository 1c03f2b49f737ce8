// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package export bridges document collections and flat tabular rows.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"lookupd.io/lookupd/pkg/docstore"
	"lookupd.io/lookupd/pkg/flatten"
)

var (
	// Error is the default export error class.
	Error = errs.Class("export error")

	mon = monkit.Package()
)

// Exporter converts document collections to CSV and back.
type Exporter struct {
	log  *zap.Logger
	docs *docstore.Store
}

// New creates an exporter over a document store.
func New(log *zap.Logger, docs *docstore.Store) *Exporter {
	return &Exporter{log: log, docs: docs}
}

// Columns returns the export column order of a collection: the
// registered schema fields plus the store metadata fields when a schema
// exists, nil otherwise.
func (exporter *Exporter) Columns(ctx context.Context, collection string) ([]string, error) {
	schema, err := exporter.docs.GetSchema(ctx, collection)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, nil
	}

	columns := append([]string(nil), schema...)
	for _, meta := range []string{docstore.UserField, docstore.KeyField} {
		if !contains(columns, meta) {
			columns = append(columns, meta)
		}
	}
	return columns, nil
}

// WriteCSV exports a collection as CSV. With a registered schema the
// rows are streamed and each schema field is one column, nested values
// serialized as a JSON cell. Without a schema every document is fully
// flattened and the column set is the union of observed keys in
// first-seen order, which requires materializing the collection.
func (exporter *Exporter) WriteCSV(ctx context.Context, collection string, w io.Writer) (err error) {
	defer mon.Task()(&ctx)(&err)

	columns, err := exporter.Columns(ctx, collection)
	if err != nil {
		return err
	}

	if columns != nil {
		return exporter.writeWithSchema(ctx, collection, columns, w)
	}
	return exporter.writeFlattened(ctx, collection, w)
}

func (exporter *Exporter) writeWithSchema(ctx context.Context, collection string, columns []string, w io.Writer) error {
	csvw := csv.NewWriter(w)
	if err := csvw.Write(columns); err != nil {
		return Error.Wrap(err)
	}

	cursor := exporter.docs.List(ctx, collection)
	for {
		doc, ok := cursor.Next(ctx)
		if !ok {
			break
		}

		record, err := flatten.FlattenFields(doc, columns)
		if err != nil {
			return err
		}

		row := make([]string, len(columns))
		for i, column := range columns {
			row[i], err = cell(record[column])
			if err != nil {
				return err
			}
		}
		if err := csvw.Write(row); err != nil {
			return Error.Wrap(err)
		}
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	csvw.Flush()
	return Error.Wrap(csvw.Error())
}

func (exporter *Exporter) writeFlattened(ctx context.Context, collection string, w io.Writer) error {
	var columns []string
	seen := map[string]bool{}
	var records []flatten.Record

	cursor := exporter.docs.List(ctx, collection)
	for {
		doc, ok := cursor.Next(ctx)
		if !ok {
			break
		}

		record, err := flatten.Flatten(doc)
		if err != nil {
			return err
		}
		records = append(records, record)

		for _, key := range sortedKeys(record) {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	csvw := csv.NewWriter(w)
	if err := csvw.Write(columns); err != nil {
		return Error.Wrap(err)
	}
	for _, record := range records {
		row := make([]string, len(columns))
		for i, column := range columns {
			value, err := cell(record[column])
			if err != nil {
				return err
			}
			row[i] = value
		}
		if err := csvw.Write(row); err != nil {
			return Error.Wrap(err)
		}
	}

	csvw.Flush()
	return Error.Wrap(csvw.Error())
}

// ReadCSV imports CSV rows into a collection, the inverse of WriteCSV.
// Schema-listed columns are parsed as JSON cells; the remaining columns
// are dot-path keys that unflatten back into nested documents. Returns
// the number of imported documents.
func (exporter *Exporter) ReadCSV(ctx context.Context, collection string, r io.Reader) (count int, err error) {
	defer mon.Task()(&ctx)(&err)

	schema, err := exporter.docs.GetSchema(ctx, collection)
	if err != nil {
		return 0, err
	}
	isSchemaField := map[string]bool{}
	for _, field := range schema {
		isSchemaField[field] = true
	}

	csvr := csv.NewReader(r)
	header, err := csvr.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, Error.Wrap(err)
	}

	for {
		row, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, Error.Wrap(err)
		}

		record := flatten.Record{}
		for i, column := range header {
			if i >= len(row) || row[i] == "" {
				continue
			}
			if column == docstore.KeyField || column == docstore.UserField {
				// metadata columns are identifiers, never scalars
				record[column] = row[i]
				continue
			}
			record[column] = parseCell(row[i], isSchemaField[column])
		}

		doc, err := flatten.Unflatten(record)
		if err != nil {
			return count, err
		}

		id, _ := doc[docstore.KeyField].(string)
		if id == "" {
			id = uuid.New().String()
		}
		owner, _ := doc[docstore.UserField].(string)
		delete(doc, docstore.KeyField)
		delete(doc, docstore.UserField)

		if err := exporter.docs.Put(ctx, collection, id, owner, doc); err != nil {
			return count, err
		}
		count++
	}

	exporter.log.Debug("imported documents",
		zap.String("collection", collection),
		zap.Int("count", count),
	)
	return count, nil
}

// Rows returns a lazy, restartable source of flat rows for non-CSV
// destinations.
func (exporter *Exporter) Rows(ctx context.Context, collection string) (*Rows, error) {
	columns, err := exporter.Columns(ctx, collection)
	if err != nil {
		return nil, err
	}
	return &Rows{
		columns: columns,
		cursor:  exporter.docs.List(ctx, collection),
	}, nil
}

// Rows iterates lazily over the flattened rows of a collection.
type Rows struct {
	columns []string
	cursor  *docstore.Cursor
	err     error
}

// Next returns the next flat row, or false when exhausted; Err reports
// iteration failures.
func (rows *Rows) Next(ctx context.Context) (flatten.Record, bool) {
	if rows.err != nil {
		return nil, false
	}

	doc, ok := rows.cursor.Next(ctx)
	if !ok {
		rows.err = rows.cursor.Err()
		return nil, false
	}

	var record flatten.Record
	if rows.columns != nil {
		record, rows.err = flatten.FlattenFields(doc, rows.columns)
	} else {
		record, rows.err = flatten.Flatten(doc)
	}
	if rows.err != nil {
		return nil, false
	}
	return record, true
}

// Reset rewinds the row source to the start of the collection.
func (rows *Rows) Reset() {
	rows.cursor.Reset()
	rows.err = nil
}

// Err returns the first error encountered during iteration.
func (rows *Rows) Err() error { return rows.err }

// cell renders one flattened value as a single CSV cell.
func cell(value interface{}) (string, error) {
	switch value := value.(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	case json.Number:
		return value.String(), nil
	case bool:
		return strconv.FormatBool(value), nil
	default:
		// arrays and any remaining nested structure serialize as JSON
		blob, err := json.Marshal(value)
		if err != nil {
			return "", Error.Wrap(err)
		}
		return string(blob), nil
	}
}

// parseCell is the inverse of cell. Schema cells hold JSON documents;
// the rest parse as JSON numbers, booleans or arrays when they can and
// stay text otherwise.
func parseCell(text string, schemaField bool) interface{} {
	decoder := json.NewDecoder(bytes.NewReader([]byte(text)))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err == nil {
		if schemaField {
			return value
		}
		switch value.(type) {
		case json.Number, bool, []interface{}:
			return value
		}
	}
	return text
}

func contains(values []string, needle string) bool {
	for _, value := range values {
		if value == needle {
			return true
		}
	}
	return false
}

// sortedKeys keeps the column discovery deterministic: first-seen order
// across documents, alphabetical within one document.
func sortedKeys(record flatten.Record) []string {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
