package customizations

import (
	"context"

	"github.com/jeffladiray/forest-vercel-test/internal/compute"
	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func customizeCoupons(cb *registry.CollectionBuilder) {
	cb.AddField("used_in_x_orders", registry.ComputedField{
		ColumnType:   core.TypeNumber,
		Dependencies: []string{"id"},
		ValuesContext: func(ctx context.Context, records []core.Record, c registry.Context) ([]any, error) {
			orders, err := c.Collection("orders")
			if err != nil {
				return nil, err
			}
			ids := make([]any, len(records))
			for i, r := range records {
				ids[i] = r["id"]
			}
			return compute.CountBy(ctx, orders, "coupon_id", ids)
		},
	})
}
