package customizations

import (
	"context"
	"fmt"
	"math"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func customizeOrders(cb *registry.CollectionBuilder) {
	cb.AddField("amount_with_discount", registry.ComputedField{
		ColumnType:   core.TypeNumber,
		Dependencies: []string{"coupon:discount_percent", "coupon:discount_amount", "initial_amount"},
		Values: func(records []core.Record, _ registry.Context) ([]any, error) {
			out := make([]any, len(records))
			for i, r := range records {
				amount, err := discountedAmount(r)
				if err != nil {
					return nil, fmt.Errorf("record %d of the batch: %w", i, err)
				}
				out[i] = amount
			}
			return out, nil
		},
	})

	cb.AddAction("Apply a coupon", action.Definition{
		Scope: action.Single,
		Form: []action.FormField{{
			Label:          "Coupon",
			Type:           action.TypeCollection,
			CollectionName: "coupons",
			Required:       true,
		}},
		Execute: func(ctx context.Context, ac *action.Context, rb action.ResultBuilder) (action.Result, error) {
			coupon, ok := pickedID(ac.FormValues["Coupon"])
			if !ok {
				return rb.Error("Failed to apply coupon: no coupon selected."), nil
			}
			if err := ac.UpdateSelection(ctx, core.Record{"coupon_id": coupon}); err != nil {
				return rb.Error(fmt.Sprintf("Failed to apply coupon: %s.", err)), nil
			}
			return rb.Success("Successfully applied coupon", action.WithInvalidated("coupon")), nil
		},
	})
}

// discountedAmount applies the coupon of an order to its initial amount,
// floored to the cent and never below zero. An order without a coupon
// keeps its initial amount.
func discountedAmount(r core.Record) (float64, error) {
	amount, err := numberOr(r["initial_amount"], 0)
	if err != nil {
		return 0, err
	}
	percent, err := numberOr(r.Value("coupon:discount_percent"), 0)
	if err != nil {
		return 0, err
	}
	flat, err := numberOr(r.Value("coupon:discount_amount"), 0)
	if err != nil {
		return 0, err
	}
	discounted := math.Max(0, amount-amount*percent/100-flat)
	return math.Floor(discounted*100) / 100, nil
}
