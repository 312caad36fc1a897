package core

// Record is one entity instance: field name to value, with nested relation
// sub-records stored as Record values under the relation name.
// A relation that resolved to no record is stored as a nil Record.
type Record map[string]any

// Get returns the value at the given path, traversing nested sub-records.
// The second result is false when any segment is absent or a relation is nil.
func (r Record) Get(p FieldPath) (any, bool) {
	cur := r
	for i, seg := range p.Segments {
		if cur == nil {
			return nil, false
		}
		v, ok := cur[seg.Name]
		if !ok {
			return nil, false
		}
		if i == len(p.Segments)-1 {
			return v, true
		}
		next, ok := asRecord(v)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Value is Get with the path given as a string; malformed paths yield nil.
func (r Record) Value(path string) any {
	p, err := ParsePath(path)
	if err != nil {
		return nil
	}
	v, _ := r.Get(p)
	return v
}

// Set stores v at the given path, creating intermediate sub-records.
// It does nothing when an intermediate relation is explicitly nil.
func (r Record) Set(p FieldPath, v any) {
	cur := r
	for i, seg := range p.Segments {
		if i == len(p.Segments)-1 {
			cur[seg.Name] = v
			return
		}
		existing, present := cur[seg.Name]
		next, ok := asRecord(existing)
		if present && next == nil {
			return
		}
		if !ok {
			next = Record{}
			cur[seg.Name] = next
		}
		cur = next
	}
}

// Relation returns the nested sub-record stored under name.
func (r Record) Relation(name string) Record {
	sub, _ := asRecord(r[name])
	return sub
}

// Project returns a new record restricted to the given paths.
// Relations that are nil in r stay nil in the result.
func (r Record) Project(paths []FieldPath) Record {
	out := Record{}
	for _, p := range paths {
		projectInto(out, r, p.Segments)
	}
	return out
}

func projectInto(dst, src Record, segs []Segment) {
	if src == nil || len(segs) == 0 {
		return
	}
	name := segs[0].Name
	v, ok := src[name]
	if !ok {
		return
	}
	if len(segs) == 1 {
		dst[name] = v
		return
	}
	sub, _ := asRecord(v)
	if sub == nil {
		if _, set := dst[name]; !set {
			dst[name] = Record(nil)
		}
		return
	}
	next, _ := asRecord(dst[name])
	if next == nil {
		next = Record{}
		dst[name] = next
	}
	projectInto(next, sub, segs[1:])
}

// Clone returns a deep copy of the record and its nested sub-records.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		if sub, ok := asRecord(v); ok {
			out[k] = sub.Clone()
			continue
		}
		out[k] = v
	}
	return out
}

func asRecord(v any) (Record, bool) {
	switch t := v.(type) {
	case Record:
		return t, true
	case map[string]any:
		return Record(t), true
	}
	return nil, false
}
