// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Op is a filter operator, named after its PostgREST spelling.
type Op string

// Supported filter operators.
const (
	OpEq   Op = "eq"
	OpNeq  Op = "neq"
	OpGt   Op = "gt"
	OpGte  Op = "gte"
	OpLt   Op = "lt"
	OpLte  Op = "lte"
	OpLike Op = "like" // '*' is the wildcard
	OpIs   Op = "is"   // null, true, false
)

// Filter restricts a list to rows where Column Op Value holds.
type Filter struct {
	Column string
	Op     Op
	Value  string
}

// Order sorts a list by Column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a declarative list request: filters, ordering and
// relational joins. The zero value lists every row of a table.
// Builder methods return a modified copy.
type Query struct {
	Filters []Filter
	Orders  []Order
	Embeds  []string // child tables to join, e.g. "comments"
	Limit   int
}

// Where adds a filter.
func (q Query) Where(column string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{
		Column: column,
		Op:     op,
		Value:  formatValue(value),
	})
	return q
}

// Eq adds an equality filter.
func (q Query) Eq(column string, value any) Query {
	return q.Where(column, OpEq, value)
}

// OrderBy adds a sort column.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Column: column, Desc: desc})
	return q
}

// Embed requests the given related tables to be joined into each row.
func (q Query) Embed(tables ...string) Query {
	q.Embeds = append(append([]string(nil), q.Embeds...), tables...)
	return q
}

// WithLimit caps the number of returned rows. Zero means no limit.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Select renders the PostgREST select expression, e.g. "*,comments(*)".
func (q Query) Select() string {
	var sb strings.Builder
	sb.WriteString("*")
	for _, e := range q.Embeds {
		sb.WriteString(",")
		sb.WriteString(e)
		sb.WriteString("(*)")
	}
	return sb.String()
}

// Values renders the query as PostgREST URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("select", q.Select())
	for _, f := range q.Filters {
		v.Add(f.Column, string(f.Op)+"."+f.Value)
	}
	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
