package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeffladiray/forest-vercel-test/internal/schema"
	"github.com/jeffladiray/forest-vercel-test/pkg/adapters/memory"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Store returns the embedded store schema and an in-memory adapter seeded
// with a few records per collection:
//
//   - users 1 Jane Doe (subscribed to plan 1), 2 John Smith (blocked, no subscription)
//   - orders 1 (100, coupon 1), 2 (50, no coupon), 3 (20, coupon 2), 4 (30, coupon 1)
//   - coupons 1 (10% then 5 off), 2 (100%), 3 (unused)
//   - tickets 1 "Login broken" (open), 2 "Invoice missing" (resolved)
func Store(t testing.TB) (*core.Schema, *memory.Adapter) {
	t.Helper()
	s, err := schema.Default()
	require.NoError(t, err)

	db := memory.New(NewTestLogger(t))
	db.Seed("users",
		core.Record{"id": int64(1), "firstname": "Jane", "lastname": "Doe", "email": "jane@example.com", "cellphone": "0600000001", "password": "secret", "is_blocked": false},
		core.Record{"id": int64(2), "firstname": "John", "lastname": "Smith", "email": "john@example.com", "cellphone": "0600000002", "password": "secret", "is_blocked": true},
	)
	db.Seed("addresses",
		core.Record{"id": int64(1), "user_id": int64(1), "country": "France", "city": "Paris", "street": "Rue de Rivoli", "number": "12"},
		core.Record{"id": int64(2), "user_id": int64(2), "country": "France", "city": "Lyon", "street": "Rue Neuve", "number": "3"},
	)
	db.Seed("plans",
		core.Record{"id": int64(1), "name": "Basic", "monthly_cost": int64(10)},
		core.Record{"id": int64(2), "name": "Premium", "monthly_cost": int64(30)},
	)
	db.Seed("subscriptions",
		core.Record{"id": int64(1), "user_id": int64(1), "plan_id": int64(1)},
	)
	db.Seed("coupons",
		core.Record{"id": int64(1), "name": "TEN", "discount_percent": int64(10), "discount_amount": int64(5)},
		core.Record{"id": int64(2), "name": "FREE", "discount_percent": int64(100), "discount_amount": int64(0)},
		core.Record{"id": int64(3), "name": "UNUSED", "discount_percent": int64(5), "discount_amount": int64(0)},
	)
	db.Seed("orders",
		core.Record{"id": int64(1), "user_id": int64(1), "coupon_id": int64(1), "initial_amount": int64(100), "paid": true},
		core.Record{"id": int64(2), "user_id": int64(1), "coupon_id": nil, "initial_amount": int64(50), "paid": false},
		core.Record{"id": int64(3), "user_id": int64(2), "coupon_id": int64(2), "initial_amount": int64(20), "paid": true},
		core.Record{"id": int64(4), "user_id": int64(2), "coupon_id": int64(1), "initial_amount": int64(30), "paid": false},
	)
	db.Seed("tickets",
		core.Record{"id": int64(1), "subject": "Login broken", "priority": "high", "is_resolved": false, "opened_by": int64(1)},
		core.Record{"id": int64(2), "subject": "Invoice missing", "priority": "low", "is_resolved": true, "opened_by": int64(2)},
	)
	return s, db
}
