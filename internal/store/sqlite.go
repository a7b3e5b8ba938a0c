// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/eventdesk/internal/model"
)

// Additional codes raised by the SQLite backend.
const (
	CodeBadRequest   = "PGRST100"
	CodeInvalidInput = "22P02"
	CodeNotNull      = "23502"
)

type columnKind int

const (
	kindInt columnKind = iota
	kindText
	kindBool
	kindTime
)

type column struct {
	name     string
	kind     columnKind
	writable bool
	required bool // NOT NULL without a default
}

// reference is a foreign key checked on write.
type reference struct {
	column string
	table  string
}

type tableSchema struct {
	columns        []column
	refs           []reference
	touchUpdatedAt bool
}

func (t tableSchema) column(name string) (column, bool) {
	for _, c := range t.columns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

func (t tableSchema) columnList() string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return strings.Join(names, ", ")
}

// relation describes a joinable child table.
type relation struct {
	child string
	fk    string
}

var schemas = map[string]tableSchema{
	model.TableEvents: {
		columns: []column{
			{name: "id", kind: kindInt},
			{name: "created_at", kind: kindTime},
			{name: "name", kind: kindText, writable: true},
			{name: "date", kind: kindText, writable: true},
			{name: "description", kind: kindText, writable: true},
			{name: "venue_id", kind: kindInt, writable: true},
			{name: "is_pinned", kind: kindBool, writable: true},
			{name: "image_url", kind: kindText, writable: true},
			{name: "pdf_url", kind: kindText, writable: true},
		},
		refs: []reference{{column: "venue_id", table: model.TableVenues}},
	},
	model.TableComments: {
		columns: []column{
			{name: "id", kind: kindInt},
			{name: "created_at", kind: kindTime},
			{name: "content", kind: kindText, writable: true},
			{name: "event_id", kind: kindInt, writable: true, required: true},
		},
		refs: []reference{{column: "event_id", table: model.TableEvents}},
	},
	model.TableVenues: {
		columns: []column{
			{name: "id", kind: kindInt},
			{name: "name", kind: kindText, writable: true},
			{name: "location", kind: kindText, writable: true},
			{name: "description", kind: kindText, writable: true},
			{name: "created_at", kind: kindTime},
			{name: "updated_at", kind: kindTime},
		},
		touchUpdatedAt: true,
	},
}

var relations = map[string]map[string]relation{
	model.TableEvents: {model.TableComments: {child: model.TableComments, fk: "event_id"}},
	model.TableVenues: {model.TableEvents: {child: model.TableEvents, fk: "venue_id"}},
}

// row is a decoded table row keyed by column name.
type row map[string]any

// SQLiteStore implements Client on a local SQLite database. It mirrors the
// REST backend: the store assigns ids and timestamps, joins are declared by
// the caller, and every failure is a RemoteError.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a store on a migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// List implements Client.
func (s *SQLiteStore) List(ctx context.Context, table string, q Query) ([]byte, error) {
	const op = "list"

	schema, err := lookupSchema(op, table)
	if err != nil {
		return nil, err
	}

	rels := make(map[string]relation, len(q.Embeds))
	for _, name := range q.Embeds {
		rel, ok := relations[table][name]
		if !ok {
			return nil, &RemoteError{
				Op: op, Table: table, Status: http.StatusBadRequest, Code: CodeNoRelationship,
				Message: fmt.Sprintf("Could not find a relationship between '%s' and '%s' in the schema cache", table, name),
			}
		}
		rels[name] = rel
	}

	where, args, err := buildWhere(op, table, schema, q.Filters)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + schema.columnList() + " FROM " + table + where)

	order := "id"
	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			if _, ok := schema.column(o.Column); !ok {
				return nil, undefinedColumn(op, table, o.Column)
			}
			parts[i] = o.Column
			if o.Desc {
				parts[i] += " DESC"
			}
		}
		order = strings.Join(parts, ", ")
	}
	sb.WriteString(" ORDER BY " + order)
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}

	rows, err := s.query(ctx, op, table, schema, sb.String(), args...)
	if err != nil {
		return nil, err
	}

	for name, rel := range rels {
		if err := s.attach(ctx, op, table, name, rel, rows); err != nil {
			return nil, err
		}
	}

	return encode(op, table, rows)
}

// attach loads rel's child rows for every parent and stores them under name.
func (s *SQLiteStore) attach(ctx context.Context, op, table, name string, rel relation, parents []row) error {
	for _, p := range parents {
		p[name] = []row{}
	}
	if len(parents) == 0 {
		return nil
	}

	byID := make(map[int64]row, len(parents))
	args := make([]any, 0, len(parents))
	for _, p := range parents {
		id, _ := p["id"].(int64)
		byID[id] = p
		args = append(args, id)
	}

	child := schemas[rel.child]
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	query := "SELECT " + child.columnList() + " FROM " + rel.child +
		" WHERE " + rel.fk + " IN (" + placeholders + ") ORDER BY id"

	children, err := s.query(ctx, op, table, child, query, args...)
	if err != nil {
		return err
	}
	for _, c := range children {
		fk, ok := c[rel.fk].(int64)
		if !ok {
			continue
		}
		if p, ok := byID[fk]; ok {
			p[name] = append(p[name].([]row), c)
		}
	}
	return nil
}

// Insert implements Client.
func (s *SQLiteStore) Insert(ctx context.Context, table string, record any) ([]byte, error) {
	const op = "insert"

	schema, err := lookupSchema(op, table)
	if err != nil {
		return nil, err
	}
	fields, err := writeFields(op, table, schema, record)
	if err != nil {
		return nil, err
	}
	for _, c := range schema.columns {
		if c.required && fields[c.name] == nil {
			return nil, &RemoteError{
				Op: op, Table: table, Status: http.StatusBadRequest, Code: CodeNotNull,
				Message: fmt.Sprintf("null value in column %q of relation %q violates not-null constraint", c.name, table),
			}
		}
	}

	now := s.timestamp()
	fields["created_at"] = now
	if schema.touchUpdatedAt {
		fields["updated_at"] = now
	}

	var id int64
	err = s.inTx(ctx, op, table, func(tx *sql.Tx) error {
		if err := checkRefs(ctx, tx, op, table, schema, fields); err != nil {
			return err
		}
		cols, placeholders, args := splitFields(fields)
		res, err := tx.ExecContext(ctx, "INSERT INTO "+table+" ("+strings.Join(cols, ", ")+") VALUES ("+
			strings.Join(placeholders, ", ")+")", args...)
		if err != nil {
			return sqlErr(op, table, err)
		}
		id, err = res.LastInsertId()
		return sqlErr(op, table, err)
	})
	if err != nil {
		return nil, err
	}

	return s.fetchOne(ctx, op, table, schema, id)
}

// Update implements Client.
func (s *SQLiteStore) Update(ctx context.Context, table string, id int64, patch any) ([]byte, error) {
	const op = "update"

	schema, err := lookupSchema(op, table)
	if err != nil {
		return nil, err
	}
	fields, err := writeFields(op, table, schema, patch)
	if err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		if schema.touchUpdatedAt {
			fields["updated_at"] = s.timestamp()
		}
		err = s.inTx(ctx, op, table, func(tx *sql.Tx) error {
			if err := checkRefs(ctx, tx, op, table, schema, fields); err != nil {
				return err
			}
			cols, _, args := splitFields(fields)
			sets := make([]string, len(cols))
			for i, c := range cols {
				sets[i] = c + " = ?"
			}
			res, err := tx.ExecContext(ctx, "UPDATE "+table+" SET "+strings.Join(sets, ", ")+" WHERE id = ?",
				append(args, id)...)
			if err != nil {
				return sqlErr(op, table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return sqlErr(op, table, err)
			}
			if n == 0 {
				return noRows(op, table)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return s.fetchOne(ctx, op, table, schema, id)
}

// Delete implements Client. Rows referencing the deleted row are left alone.
func (s *SQLiteStore) Delete(ctx context.Context, table string, id int64) error {
	const op = "delete"

	if _, err := lookupSchema(op, table); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return sqlErr(op, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return sqlErr(op, table, err)
	}
	if n == 0 {
		return noRows(op, table)
	}
	return nil
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *SQLiteStore) inTx(ctx context.Context, op, table string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sqlErr(op, table, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return sqlErr(op, table, tx.Commit())
}

func (s *SQLiteStore) fetchOne(ctx context.Context, op, table string, schema tableSchema, id int64) ([]byte, error) {
	rows, err := s.query(ctx, op, table, schema,
		"SELECT "+schema.columnList()+" FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, noRows(op, table)
	}
	return encode(op, table, rows[0])
}

func (s *SQLiteStore) query(ctx context.Context, op, table string, schema tableSchema, query string, args ...any) ([]row, error) {
	rs, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqlErr(op, table, err)
	}
	defer func() { _ = rs.Close() }()

	result := []row{}
	for rs.Next() {
		dest := make([]any, len(schema.columns))
		for i, c := range schema.columns {
			switch c.kind {
			case kindInt, kindBool:
				dest[i] = new(sql.NullInt64)
			default:
				dest[i] = new(sql.NullString)
			}
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, sqlErr(op, table, err)
		}

		r := make(row, len(schema.columns))
		for i, c := range schema.columns {
			switch v := dest[i].(type) {
			case *sql.NullInt64:
				switch {
				case !v.Valid:
					r[c.name] = nil
				case c.kind == kindBool:
					r[c.name] = v.Int64 != 0
				default:
					r[c.name] = v.Int64
				}
			case *sql.NullString:
				if v.Valid {
					r[c.name] = v.String
				} else {
					r[c.name] = nil
				}
			}
		}
		result = append(result, r)
	}
	if err := rs.Err(); err != nil {
		return nil, sqlErr(op, table, err)
	}
	return result, nil
}

func lookupSchema(op, table string) (tableSchema, error) {
	schema, ok := schemas[table]
	if !ok {
		return tableSchema{}, &RemoteError{
			Op: op, Table: table, Status: http.StatusNotFound, Code: CodeUndefinedTable,
			Message: fmt.Sprintf("relation \"public.%s\" does not exist", table),
		}
	}
	return schema, nil
}

func buildWhere(op, table string, schema tableSchema, filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		c, ok := schema.column(f.Column)
		if !ok {
			return "", nil, undefinedColumn(op, table, f.Column)
		}

		if f.Op == OpIs {
			switch strings.ToLower(f.Value) {
			case "null":
				clauses = append(clauses, c.name+" IS NULL")
			case "true":
				clauses = append(clauses, c.name+" = 1")
			case "false":
				clauses = append(clauses, c.name+" = 0")
			default:
				return "", nil, badFilter(op, table, f)
			}
			continue
		}

		var sqlOp string
		switch f.Op {
		case OpEq:
			sqlOp = "="
		case OpNeq:
			sqlOp = "<>"
		case OpGt:
			sqlOp = ">"
		case OpGte:
			sqlOp = ">="
		case OpLt:
			sqlOp = "<"
		case OpLte:
			sqlOp = "<="
		case OpLike:
			sqlOp = "LIKE"
		default:
			return "", nil, badFilter(op, table, f)
		}

		var arg any = f.Value
		switch {
		case f.Op == OpLike:
			arg = strings.ReplaceAll(f.Value, "*", "%")
		case c.kind == kindBool:
			b, err := strconv.ParseBool(f.Value)
			if err != nil {
				return "", nil, invalidInput(op, table, "boolean", f.Value)
			}
			arg = boolToInt(b)
		case c.kind == kindInt:
			n, err := strconv.ParseInt(f.Value, 10, 64)
			if err != nil {
				return "", nil, invalidInput(op, table, "bigint", f.Value)
			}
			arg = n
		}
		clauses = append(clauses, c.name+" "+sqlOp+" ?")
		args = append(args, arg)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// writeFields converts a write payload into column values.
func writeFields(op, table string, schema tableSchema, payload any) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &RemoteError{Op: op, Table: table, Code: CodeBadRequest, Message: "encoding request body", Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &RemoteError{
			Op: op, Table: table, Status: http.StatusBadRequest, Code: CodeBadRequest,
			Message: "request body must be a JSON object", Err: err,
		}
	}

	fields := make(map[string]any, len(raw))
	for name, v := range raw {
		c, ok := schema.column(name)
		if !ok || !c.writable {
			return nil, &RemoteError{
				Op: op, Table: table, Status: http.StatusBadRequest, Code: CodeUnknownColumn,
				Message: fmt.Sprintf("Could not find the '%s' column of '%s' in the schema cache", name, table),
			}
		}
		val, err := toSQLValue(op, table, c, v)
		if err != nil {
			return nil, err
		}
		fields[name] = val
	}
	return fields, nil
}

func toSQLValue(op, table string, c column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.kind {
	case kindInt:
		n, ok := v.(json.Number)
		if !ok {
			return nil, invalidInput(op, table, "bigint", fmt.Sprint(v))
		}
		i, err := n.Int64()
		if err != nil {
			return nil, invalidInput(op, table, "bigint", n.String())
		}
		return i, nil
	case kindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, invalidInput(op, table, "boolean", fmt.Sprint(v))
		}
		return boolToInt(b), nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, invalidInput(op, table, "text", fmt.Sprint(v))
		}
		return s, nil
	}
}

// checkRefs enforces that referenced rows exist at write time.
func checkRefs(ctx context.Context, tx *sql.Tx, op, table string, schema tableSchema, fields map[string]any) error {
	for _, ref := range schema.refs {
		v, ok := fields[ref.column]
		if !ok || v == nil {
			continue
		}
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM "+ref.table+" WHERE id = ?", v).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return &RemoteError{
				Op: op, Table: table, Status: http.StatusConflict, Code: CodeForeignKey,
				Message: fmt.Sprintf("insert or update on table %q violates foreign key constraint %q",
					table, table+"_"+ref.column+"_fkey"),
				Details: fmt.Sprintf("Key (%s)=(%v) is not present in table %q.", ref.column, v, ref.table),
			}
		}
		if err != nil {
			return sqlErr(op, table, err)
		}
	}
	return nil
}

func splitFields(fields map[string]any) (cols, placeholders []string, args []any) {
	for name := range fields {
		cols = append(cols, name)
	}
	// Deterministic statement text.
	slices.Sort(cols)
	for _, name := range cols {
		placeholders = append(placeholders, "?")
		args = append(args, fields[name])
	}
	return cols, placeholders, args
}

func encode(op, table string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &RemoteError{Op: op, Table: table, Message: "encoding response", Err: err}
	}
	return data, nil
}

func sqlErr(op, table string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsRemoteError(err); ok {
		return err
	}
	return &RemoteError{Op: op, Table: table, Message: err.Error(), Err: err}
}

func noRows(op, table string) *RemoteError {
	return &RemoteError{
		Op: op, Table: table, Status: http.StatusNotAcceptable, Code: CodeNoRows,
		Message: "JSON object requested, multiple (or no) rows returned",
		Details: "The result contains 0 rows",
	}
}

func undefinedColumn(op, table, name string) *RemoteError {
	return &RemoteError{
		Op: op, Table: table, Status: http.StatusBadRequest, Code: CodeUndefinedColumn,
		Message: fmt.Sprintf("column %s.%s does not exist", table, name),
	}
}

func invalidInput(op, table, typ, value string) *RemoteError {
	return &RemoteError{
		Op: op, Table: table, Status: http.StatusBadRequest, Code: CodeInvalidInput,
		Message: fmt.Sprintf("invalid input syntax for type %s: %q", typ, value),
	}
}

func badFilter(op, table string, f Filter) *RemoteError {
	return &RemoteError{
		Op: op, Table: table, Status: http.StatusBadRequest, Code: CodeBadRequest,
		Message: fmt.Sprintf("failed to parse filter (%s.%s)", f.Op, f.Value),
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
