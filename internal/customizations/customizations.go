// Package customizations declares the computed fields and actions of the
// store collections.
package customizations

import (
	"fmt"
	"math"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Options configures the customizations that talk to external services.
type Options struct {
	// ImpersonationURL receives the impersonation webhook.
	ImpersonationURL string
	// AdminToken is sent with the impersonation webhook.
	AdminToken string
}

// Apply returns a function registering every customization on a builder.
func Apply(opts Options) func(*registry.Builder) {
	return func(b *registry.Builder) {
		b.Customize("users", func(cb *registry.CollectionBuilder) { customizeUsers(cb, opts) })
		b.Customize("orders", customizeOrders)
		b.Customize("coupons", customizeCoupons)
		b.Customize("tickets", customizeTickets)
	}
}

// numberOr converts v, treating nil as fallback.
func numberOr(v any, fallback float64) (float64, error) {
	if v == nil {
		return fallback, nil
	}
	f, err := core.ToFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("expected a number: %w", err)
	}
	return f, nil
}

// pickedID returns the record id picked in a Collection form field.
// Ids submitted as text or decoded from JSON are converted to integers.
func pickedID(v any) (any, bool) {
	id, ok := action.CollectionValue(v)
	if !ok {
		return nil, false
	}
	switch raw := id.(type) {
	case string:
		if n, err := core.ToInt64(raw); err == nil {
			return n, true
		}
	case float64:
		if raw == math.Trunc(raw) {
			return int64(raw), true
		}
	}
	return id, true
}
