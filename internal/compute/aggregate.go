package compute

import (
	"context"
	"fmt"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// CountBy counts, for each key, the records of access whose groupField
// equals it. It issues a single RawAggregate call and re-associates rows by
// key; keys without rows count 0. A count storage returns that is not an
// integer is an error. Empty input, or only nil keys, skips storage.
func CountBy(ctx context.Context, access core.CollectionAccess, groupField string, keys []any) ([]any, error) {
	out := make([]any, len(keys))
	for i := range out {
		out[i] = int64(0)
	}

	seen := make(map[string]bool, len(keys))
	distinct := make([]any, 0, len(keys))
	for _, k := range keys {
		if k == nil {
			continue
		}
		if key := core.KeyOf(k); !seen[key] {
			seen[key] = true
			distinct = append(distinct, k)
		}
	}
	if len(distinct) == 0 {
		return out, nil
	}

	rows, err := access.RawAggregate(ctx, groupField, distinct)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		n, err := core.ToInt64(row.Count)
		if err != nil {
			return nil, fmt.Errorf("malformed count for %s %v: %w", groupField, row.Group, err)
		}
		counts[core.KeyOf(row.Group)] = n
	}
	for i, k := range keys {
		if k == nil {
			continue
		}
		if n, ok := counts[core.KeyOf(k)]; ok {
			out[i] = n
		}
	}
	return out, nil
}
