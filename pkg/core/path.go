package core

import (
	"fmt"
	"strings"
)

// PathSeparator joins the segments of a field path in its canonical form.
const PathSeparator = ":"

// SegmentKind discriminates the segments of a FieldPath.
type SegmentKind int

const (
	// SegmentRelation traverses a relation to another collection.
	SegmentRelation SegmentKind = iota
	// SegmentField names a field on the collection reached so far.
	SegmentField
)

// Segment is one step of a FieldPath.
type Segment struct {
	Name string
	Kind SegmentKind
}

// FieldPath identifies a field on a collection, possibly reached by
// traversing relations ("coupon:discount_percent").
// All segments but the last are relations; the last one is a field.
type FieldPath struct {
	Segments []Segment
}

// ParsePath parses a ':' or '.' separated field path.
func ParsePath(s string) (FieldPath, error) {
	if s == "" {
		return FieldPath{}, fmt.Errorf("empty field path")
	}
	parts := strings.Split(strings.ReplaceAll(s, ".", PathSeparator), PathSeparator)
	p := FieldPath{Segments: make([]Segment, len(parts))}
	for i, part := range parts {
		if part == "" {
			return FieldPath{}, fmt.Errorf("malformed field path %q", s)
		}
		kind := SegmentRelation
		if i == len(parts)-1 {
			kind = SegmentField
		}
		p.Segments[i] = Segment{Name: part, Kind: kind}
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on malformed input.
// Intended for static paths in customizations and tests.
func MustParsePath(s string) FieldPath {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// LocalPath returns a single-segment path to a field of the current collection.
func LocalPath(field string) FieldPath {
	return FieldPath{Segments: []Segment{{Name: field, Kind: SegmentField}}}
}

// Field returns the name of the final field segment.
func (p FieldPath) Field() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1].Name
}

// Relations returns the names of the relation segments, outermost first.
func (p FieldPath) Relations() []string {
	if len(p.Segments) <= 1 {
		return nil
	}
	names := make([]string, 0, len(p.Segments)-1)
	for _, s := range p.Segments[:len(p.Segments)-1] {
		names = append(names, s.Name)
	}
	return names
}

// IsLocal reports whether the path has no relation segment.
func (p FieldPath) IsLocal() bool {
	return len(p.Segments) == 1
}

// Head returns the first relation name and the remaining path.
// For a local path it returns "" and p unchanged.
func (p FieldPath) Head() (string, FieldPath) {
	if p.IsLocal() {
		return "", p
	}
	return p.Segments[0].Name, FieldPath{Segments: p.Segments[1:]}
}

// Prefix returns the relation part of the path in canonical form ("user:subscription"),
// or "" for a local path.
func (p FieldPath) Prefix() string {
	return strings.Join(p.Relations(), PathSeparator)
}

// Under returns p nested below the given relation prefix.
// An empty prefix returns p unchanged.
func (p FieldPath) Under(prefix string) FieldPath {
	if prefix == "" {
		return p
	}
	rels := strings.Split(prefix, PathSeparator)
	segs := make([]Segment, 0, len(rels)+len(p.Segments))
	for _, r := range rels {
		segs = append(segs, Segment{Name: r, Kind: SegmentRelation})
	}
	segs = append(segs, p.Segments...)
	return FieldPath{Segments: segs}
}

// String renders the path in canonical ':' form.
func (p FieldPath) String() string {
	names := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		names[i] = s.Name
	}
	return strings.Join(names, PathSeparator)
}

// PrefixField joins a relation prefix and a field path string.
func PrefixField(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + PathSeparator + field
}
