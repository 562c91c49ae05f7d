package criteria

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Param is one raw key/value pair taken from a query string.
type Param struct {
	Key   string
	Value string
}

// Query groups the bracketed parameters of a list request in the order the
// client sent them.
type Query struct {
	Filter []Param
	Sort   []Param
}

// ParseQuery extracts filter[x]=v and sort[x]=v pairs from a raw query string.
// url.Values would lose the order the sort rules depend on.
func ParseQuery(rawQuery string) (Query, error) {
	var q Query
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return Query{}, fmt.Errorf("%w: query key %q: %v", ErrInvalidValue, k, err)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return Query{}, fmt.Errorf("%w: query value for %q: %v", ErrInvalidValue, key, err)
		}
		if name, ok := bracketed(key, "filter"); ok {
			q.Filter = append(q.Filter, Param{Key: name, Value: val})
		} else if name, ok := bracketed(key, "sort"); ok {
			q.Sort = append(q.Sort, Param{Key: name, Value: val})
		}
	}
	return q, nil
}

func bracketed(key, group string) (string, bool) {
	rest, ok := strings.CutPrefix(key, group+"[")
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, "]")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Field parsers.

func String(raw string) (any, error) { return strings.TrimSpace(raw), nil }

func UUID(raw string) (any, error) { return uuid.Parse(raw) }

func Date(raw string) (any, error) { return time.Parse(time.DateOnly, raw) }

func Decimal(raw string) (any, error) { return decimal.NewFromString(raw) }
