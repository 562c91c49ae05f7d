// Package criteria turns client query parameters into validated filter, sort
// and pagination values for list operations.
package criteria

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidValue    = errors.New("criteria: invalid value")
	ErrUndeclaredField = errors.New("criteria: undeclared field")
)

// ParseFunc converts a raw query value into the typed value stored in a Filter.
type ParseFunc func(raw string) (any, error)

// Field is a client-addressable name. A nil Parse keeps the raw string.
type Field struct {
	Name  string
	Parse ParseFunc
}

// Default seeds a Filter value, or a Sort direction, before client input is applied.
type Default struct {
	Field string
	Value any
}

// Definition is the closed set of fields a list operation accepts.
type Definition struct {
	Fields   []Field
	Defaults []Default
}

func (d Definition) field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Declares reports whether name is part of the definition.
func (d Definition) Declares(name string) bool {
	_, ok := d.field(name)
	return ok
}

// Entry is one ordered key/value pair.
type Entry struct {
	Field string
	Value any
}

// Filter holds the effective filter values in insertion order.
type Filter struct{ entries []Entry }

func (f *Filter) set(name string, v any) {
	for i := range f.entries {
		if f.entries[i].Field == name {
			f.entries[i].Value = v
			return
		}
	}
	f.entries = append(f.entries, Entry{Field: name, Value: v})
}

func (f Filter) Get(name string) (any, bool) {
	for _, e := range f.entries {
		if e.Field == name {
			return e.Value, true
		}
	}
	return nil, false
}

// String returns the value under name when it is a non-empty string.
func (f Filter) String(name string) (string, bool) {
	v, ok := f.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func (f Filter) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

func (f Filter) Len() int { return len(f.entries) }

// Entries returns a copy of the filter values.
func (f Filter) Entries() []Entry { return append([]Entry(nil), f.entries...) }

// NewFilter seeds def's defaults, then overwrites them with every declared,
// non-empty value in raw. Undeclared raw keys are ignored.
func NewFilter(def Definition, raw []Param) (Filter, error) {
	var f Filter
	for _, d := range def.Defaults {
		f.set(d.Field, d.Value)
	}
	for _, p := range raw {
		fld, ok := def.field(p.Key)
		if !ok || p.Value == "" {
			continue
		}
		v := any(p.Value)
		if fld.Parse != nil {
			parsed, err := fld.Parse(p.Value)
			if err != nil {
				return Filter{}, fmt.Errorf("%w: filter[%s]: %v", ErrInvalidValue, p.Key, err)
			}
			v = parsed
		}
		f.set(fld.Name, v)
	}
	return f, nil
}

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection maps "desc" in any case to Desc and everything else to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

type Order struct {
	Field     string
	Direction Direction
}

// Sort holds the effective ordering.
type Sort struct{ orders []Order }

// Orders returns a copy of the sort entries.
func (s Sort) Orders() []Order { return append([]Order(nil), s.orders...) }

func (s Sort) Len() int { return len(s.orders) }

// NewSort honors only the first declared key found in raw, in raw order.
// Without one it falls back to the first default.
func NewSort(def Definition, raw []Param) Sort {
	for _, p := range raw {
		if def.Declares(p.Key) {
			return Sort{orders: []Order{{Field: p.Key, Direction: ParseDirection(p.Value)}}}
		}
	}
	if len(def.Defaults) > 0 {
		d := def.Defaults[0]
		return Sort{orders: []Order{{Field: d.Field, Direction: ParseDirection(fmt.Sprint(d.Value))}}}
	}
	return Sort{}
}

// Pagination is an offset/limit window. It only applies when Exists is set.
type Pagination struct {
	Offset int
	Limit  int
	Exists bool
}

// NewPagination builds a window from optional offset and limit. The window
// exists once a positive limit is given; a zero limit reads as no limit.
func NewPagination(offset, limit *int) (Pagination, error) {
	var p Pagination
	if offset != nil {
		if *offset < 0 {
			return Pagination{}, fmt.Errorf("%w: offset must not be negative", ErrInvalidValue)
		}
		p.Offset = *offset
	}
	if limit != nil {
		if *limit < 0 {
			return Pagination{}, fmt.Errorf("%w: limit must not be negative", ErrInvalidValue)
		}
		if *limit > 0 {
			p.Limit = *limit
			p.Exists = true
		}
	}
	return p, nil
}

// Criteria is the immutable query description handed to a repository.
type Criteria struct {
	filter     Filter
	sort       Sort
	pagination Pagination
}

func New(filter Filter, sort Sort, pagination Pagination) Criteria {
	return Criteria{
		filter:     Filter{entries: filter.Entries()},
		sort:       Sort{orders: sort.Orders()},
		pagination: pagination,
	}
}

func (c Criteria) Filter() Filter         { return Filter{entries: c.filter.Entries()} }
func (c Criteria) Sort() Sort             { return Sort{orders: c.sort.Orders()} }
func (c Criteria) Pagination() Pagination { return c.pagination }
