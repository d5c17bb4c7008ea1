package cms

import (
	"fmt"
	"net/url"
	"strings"
)

// Query builds Strapi bracket query strings. A nil *Query is an empty query.
type Query struct {
	values url.Values
	sorts  int
}

// NewQuery returns an empty query
func NewQuery() *Query {
	return &Query{values: url.Values{}}
}

func (q *Query) set(key string, value any) *Query {
	if q.values == nil {
		q.values = url.Values{}
	}
	q.values.Set(key, fmt.Sprint(value))
	return q
}

// Filter adds filters[k1][k2]...=value.
//
//	Filter(42, "sponsor", "id", "$eq") -> filters[sponsor][id][$eq]=42
func (q *Query) Filter(value any, keys ...string) *Query {
	return q.set("filters["+strings.Join(keys, "][")+"]", value)
}

// Eq adds filters[field][$eq]=value
func (q *Query) Eq(field string, value any) *Query {
	return q.Filter(value, field, "$eq")
}

// Populate requests relations. One field uses populate=field, several use
// populate[field]=true.
func (q *Query) Populate(fields ...string) *Query {
	if len(fields) == 1 {
		return q.set("populate", fields[0])
	}
	for _, f := range fields {
		q.set("populate["+f+"]", "true")
	}
	return q
}

// PopulateAll requests every first-level relation
func (q *Query) PopulateAll() *Query {
	return q.set("populate", "*")
}

// Sort appends a sort expression such as "date:asc"
func (q *Query) Sort(expr string) *Query {
	q.set(fmt.Sprintf("sort[%d]", q.sorts), expr)
	q.sorts++
	return q
}

// PageSize sets pagination[pageSize]
func (q *Query) PageSize(n int) *Query {
	return q.set("pagination[pageSize]", n)
}

// Page sets pagination[page], starting at 1
func (q *Query) Page(n int) *Query {
	return q.set("pagination[page]", n)
}

// Limit sets pagination[limit]
func (q *Query) Limit(n int) *Query {
	return q.set("pagination[limit]", n)
}

// Encode returns the URL-encoded query string
func (q *Query) Encode() string {
	if q == nil || len(q.values) == 0 {
		return ""
	}
	return q.values.Encode()
}

// Get returns the raw value for key, mostly for tests
func (q *Query) Get(key string) string {
	if q == nil {
		return ""
	}
	return q.values.Get(key)
}
