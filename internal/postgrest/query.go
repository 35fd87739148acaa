package postgrest

import (
	"net/url"
	"strconv"
)

// Eq returns a filter matching rows whose column equals value.
func Eq(column, value string) url.Values {
	return url.Values{column: []string{"eq." + value}}
}

// Query is a fluent builder over url.Values for PostgREST query strings.
type Query url.Values

// NewQuery starts an empty query.
func NewQuery() Query { return Query{} }

// Select restricts the returned columns.
func (q Query) Select(columns string) Query { return q.set("select", columns) }

// Eq adds an equality filter.
func (q Query) Eq(column, value string) Query { return q.set(column, "eq."+value) }

// Order sorts by column, ascending unless desc is set.
func (q Query) Order(column string, desc bool) Query {
	dir := ".asc"
	if desc {
		dir = ".desc"
	}
	return q.set("order", column+dir)
}

// Limit caps the number of rows.
func (q Query) Limit(n int) Query { return q.set("limit", strconv.Itoa(n)) }

// OnConflict names the column used to merge duplicates on insert.
func (q Query) OnConflict(column string) Query { return q.set("on_conflict", column) }

// Values returns the query as url.Values.
func (q Query) Values() url.Values { return url.Values(q) }

func (q Query) set(key, value string) Query {
	url.Values(q).Set(key, value)
	return q
}
