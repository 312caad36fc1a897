package core

import (
	"fmt"
	"sort"
	"strings"
)

// SortEntry orders records by one field.
type SortEntry struct {
	Field     string `json:"field"`
	Ascending bool   `json:"ascending"`
}

// Sort is an ordered list of sort entries; the first entry has the highest precedence.
type Sort []SortEntry

// Inverse returns the sort with every direction flipped.
func (s Sort) Inverse() Sort {
	out := make(Sort, len(s))
	for i, e := range s {
		out[i] = SortEntry{Field: e.Field, Ascending: !e.Ascending}
	}
	return out
}

// Prefixed returns the sort with every field nested below prefix.
func (s Sort) Prefixed(prefix string) Sort {
	out := make(Sort, len(s))
	for i, e := range s {
		out[i] = SortEntry{Field: PrefixField(prefix, e.Field), Ascending: e.Ascending}
	}
	return out
}

// ParseSort parses "a,-b" into [a asc, b desc].
func ParseSort(s string) (Sort, error) {
	var out Sort
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		asc := true
		if strings.HasPrefix(part, "-") {
			asc = false
			part = part[1:]
		}
		if _, err := ParsePath(part); err != nil {
			return nil, fmt.Errorf("invalid sort: %w", err)
		}
		out = append(out, SortEntry{Field: part, Ascending: asc})
	}
	return out, nil
}

// Apply sorts records in place by the sort entries, stable for ties.
func (s Sort) Apply(records []Record) {
	if len(s) == 0 {
		return
	}
	paths := make([]FieldPath, len(s))
	for i, e := range s {
		paths[i] = MustParsePath(e.Field)
	}
	sort.SliceStable(records, func(i, j int) bool {
		for k, e := range s {
			a, _ := records[i].Get(paths[k])
			b, _ := records[j].Get(paths[k])
			c := Compare(a, b)
			if c == 0 {
				continue
			}
			if e.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

// Page is an optional window over the result set.
type Page struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// Apply returns the page window of records.
func (p *Page) Apply(records []Record) []Record {
	if p == nil {
		return records
	}
	if p.Skip >= len(records) {
		return nil
	}
	records = records[p.Skip:]
	if p.Limit > 0 && p.Limit < len(records) {
		records = records[:p.Limit]
	}
	return records
}

// PaginatedFilter is the full read request handed to storage.
type PaginatedFilter struct {
	ConditionTree ConditionTree
	Sort          Sort
	Page          *Page
}

// Projection is an ordered set of field paths to fetch.
type Projection []string

// NewProjection builds a projection, dropping duplicates while keeping first-seen order.
func NewProjection(fields ...string) Projection {
	var p Projection
	return p.Union(fields...)
}

// Union returns p extended with the fields it does not already contain.
func (p Projection) Union(fields ...string) Projection {
	seen := make(map[string]bool, len(p)+len(fields))
	out := make(Projection, 0, len(p)+len(fields))
	for _, f := range p {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// Columns returns the local (non-relation) fields.
func (p Projection) Columns() []string {
	var out []string
	for _, f := range p {
		if !strings.ContainsAny(f, ":.") {
			out = append(out, f)
		}
	}
	return out
}

// Relations returns the projection of every first-level relation, keyed by relation name.
func (p Projection) Relations() map[string]Projection {
	out := make(map[string]Projection)
	for _, f := range p {
		path, err := ParsePath(f)
		if err != nil || path.IsLocal() {
			continue
		}
		rel, rest := path.Head()
		out[rel] = out[rel].Union(rest.String())
	}
	return out
}

// Paths parses every field of the projection.
func (p Projection) Paths() ([]FieldPath, error) {
	out := make([]FieldPath, len(p))
	for i, f := range p {
		path, err := ParsePath(f)
		if err != nil {
			return nil, err
		}
		out[i] = path
	}
	return out, nil
}

// AggregateRow is one group of a RawAggregate result. Count is the raw
// value returned by storage and may need numeric conversion.
type AggregateRow struct {
	Group any
	Count any
}
