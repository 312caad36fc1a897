package rewrite

import (
	"errors"
	"sort"

	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Write splits a write payload into physical assignments. Computed fields
// are decomposed by their writer; two entries assigning different values
// to the same column are a WriteConflictError.
func (rw *Rewriter) Write(collection string, patch core.Record) (core.Record, error) {
	c, err := rw.registry.MustCollection(collection)
	if err != nil {
		return nil, err
	}
	return rw.write(c, patch)
}

// WriteAll splits every record before returning, so a bad record fails the
// whole batch before anything reaches storage.
func (rw *Rewriter) WriteAll(collection string, records []core.Record) ([]core.Record, error) {
	c, err := rw.registry.MustCollection(collection)
	if err != nil {
		return nil, err
	}
	out := make([]core.Record, len(records))
	for i, r := range records {
		if out[i], err = rw.write(c, r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (rw *Rewriter) write(c *registry.Collection, patch core.Record) (core.Record, error) {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := &splitWriter{collection: c.Name, out: make(core.Record, len(patch)), sources: map[string]string{}}
	var computed []*registry.Field
	for _, k := range keys {
		f, ok := c.Field(k)
		if !ok {
			if _, isRelation := c.Schema.Relation(k); isRelation {
				return nil, &core.InvalidWriteValueError{Collection: c.Name, Field: k, Value: patch[k], Reason: "relations cannot be written"}
			}
			return nil, &core.UnknownFieldError{Collection: c.Name, Field: k}
		}
		if f.IsComputed() {
			computed = append(computed, f)
			continue
		}
		if err := w.assign(k, patch[k], k); err != nil {
			return nil, err
		}
	}

	for _, f := range computed {
		value := patch[f.Name]
		writer := f.Writer()
		if writer == nil {
			return nil, &core.InvalidWriteValueError{Collection: c.Name, Field: f.Name, Value: value, Reason: "field is read-only"}
		}
		parts, err := writer(value, rw.capability(c.Name))
		if err != nil {
			var invalid *core.InvalidWriteValueError
			if errors.As(err, &invalid) {
				return nil, err
			}
			return nil, &core.InvalidWriteValueError{Collection: c.Name, Field: f.Name, Value: value, Reason: err.Error()}
		}
		partKeys := make([]string, 0, len(parts))
		for k := range parts {
			partKeys = append(partKeys, k)
		}
		sort.Strings(partKeys)
		for _, k := range partKeys {
			target, ok := c.Field(k)
			if !ok || target.IsComputed() {
				return nil, &core.InvalidWriteValueError{Collection: c.Name, Field: f.Name, Value: value, Reason: "writer assigns non-column field " + k}
			}
			if err := w.assign(k, parts[k], f.Name); err != nil {
				return nil, err
			}
		}
	}
	return w.out, nil
}

type splitWriter struct {
	collection string
	out        core.Record
	sources    map[string]string
}

func (w *splitWriter) assign(column string, value any, source string) error {
	if existing, taken := w.out[column]; taken && !core.Equal(existing, value) {
		return &core.WriteConflictError{Collection: w.collection, Field: column, Sources: []string{w.sources[column], source}}
	}
	if _, taken := w.out[column]; !taken {
		w.sources[column] = source
	}
	w.out[column] = value
	return nil
}
