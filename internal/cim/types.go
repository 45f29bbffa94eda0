package cim

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Query selects instances of one CIM class.
type Query struct {
	// Namespace is the CIM namespace, e.g. root\cimv2.
	Namespace string

	// Class is the CIM class name.
	Class string

	// Filter is an optional WQL WHERE clause without the WHERE keyword.
	Filter string

	// Properties limits the returned properties. Empty means all.
	Properties []string
}

// String renders the query in WQL form for logs.
func (q Query) String() string {
	props := "*"
	if len(q.Properties) > 0 {
		props = strings.Join(q.Properties, ", ")
	}
	s := fmt.Sprintf("SELECT %s FROM %s", props, q.Class)
	if q.Filter != "" {
		s += " WHERE " + q.Filter
	}
	return q.Namespace + ": " + s
}

// Instance is one CIM object as a property map.
type Instance map[string]any

// String returns the property as a trimmed string. Missing and null
// properties return "".
func (i Instance) String(key string) string {
	switch v := i[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// FirstString returns the first non-empty property among keys.
func (i Instance) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := i.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Int returns the property as an integer. The second result is false when the
// property is missing or not numeric.
func (i Instance) Int(key string) (int, bool) {
	switch v := i[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// Querier runs CIM queries.
type Querier interface {
	Query(ctx context.Context, q Query) ([]Instance, error)
}
