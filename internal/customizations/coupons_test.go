package customizations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func TestUsedInXOrders(t *testing.T) {
	s := newStore(t)
	records := s.list(t, "coupons", core.PaginatedFilter{
		Sort: core.Sort{{Field: "id", Ascending: false}},
	}, "name", "used_in_x_orders")

	assert.Equal(t, []any{"UNUSED", "FREE", "TEN"}, values(records, "name"))
	assert.Equal(t, []any{int64(0), int64(1), int64(2)}, values(records, "used_in_x_orders"))
}

func TestUsedInXOrders_ThroughRelation(t *testing.T) {
	s := newStore(t)
	records := s.list(t, "orders", core.PaginatedFilter{}, "id", "coupon:used_in_x_orders")
	assert.Equal(t, []any{int64(2), nil, int64(1), int64(2)}, values(records, "coupon:used_in_x_orders"))
}
