package rewrite

import "github.com/jeffladiray/forest-vercel-test/pkg/core"

// Sort rewrites sort entries on computed fields into their physical
// replacement, spliced in place. A descending entry inverts every entry of
// the replacement.
func (rw *Rewriter) Sort(collection string, sort core.Sort) (core.Sort, error) {
	root, err := rw.registry.MustCollection(collection)
	if err != nil {
		return nil, err
	}
	if len(sort) == 0 {
		return nil, nil
	}

	out := make(core.Sort, 0, len(sort))
	for _, entry := range sort {
		p, err := core.ParsePath(entry.Field)
		if err != nil {
			return nil, err
		}
		owner, f, err := root.Lookup(p)
		if err != nil {
			return nil, err
		}
		if !f.IsComputed() {
			out = append(out, core.SortEntry{Field: p.String(), Ascending: entry.Ascending})
			continue
		}
		replacement := f.Sorting()
		if replacement == nil {
			return nil, &core.UnsortableFieldError{Collection: owner.Name, Field: f.Name}
		}
		if !entry.Ascending {
			replacement = replacement.Inverse()
		}
		out = append(out, replacement.Prefixed(p.Prefix())...)
	}
	return out, nil
}
