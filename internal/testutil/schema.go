package testutil

import "github.com/jeffladiray/forest-vercel-test/pkg/core"

func col(name string, t core.ColumnType) core.ColumnSchema {
	return core.ColumnSchema{Name: name, Type: t, Nullable: true}
}

func pk() core.ColumnSchema {
	return core.ColumnSchema{Name: "id", Type: core.TypeNumber, PrimaryKey: true}
}

func manyToOne(name, target, fk string) core.RelationSchema {
	return core.RelationSchema{Name: name, Kind: core.ManyToOne, Target: target, ForeignKey: fk, TargetKey: "id"}
}

// Schema returns a small store schema: users with their subscription and
// addresses, orders with an optional coupon, and tickets.
func Schema() *core.Schema {
	return &core.Schema{Collections: []*core.CollectionSchema{
		{
			Name: "users",
			Columns: []core.ColumnSchema{
				pk(),
				col("firstname", core.TypeString),
				col("lastname", core.TypeString),
				col("email", core.TypeString),
				col("cellphone", core.TypeString),
				col("password", core.TypeString),
				col("is_blocked", core.TypeBoolean),
			},
			Relations: []core.RelationSchema{
				{Name: "subscription", Kind: core.OneToOne, Target: "subscriptions", ForeignKey: "user_id", TargetKey: "id"},
				{Name: "addresses", Kind: core.OneToMany, Target: "addresses", ForeignKey: "user_id", TargetKey: "id"},
			},
		},
		{
			Name: "addresses",
			Columns: []core.ColumnSchema{
				pk(),
				col("user_id", core.TypeNumber),
				col("city", core.TypeString),
				col("country", core.TypeString),
			},
			Relations: []core.RelationSchema{manyToOne("user", "users", "user_id")},
		},
		{
			Name: "plans",
			Columns: []core.ColumnSchema{
				pk(),
				col("name", core.TypeString),
			},
		},
		{
			Name: "subscriptions",
			Columns: []core.ColumnSchema{
				pk(),
				col("user_id", core.TypeNumber),
				col("plan_id", core.TypeNumber),
			},
			Relations: []core.RelationSchema{
				manyToOne("user", "users", "user_id"),
				manyToOne("plan", "plans", "plan_id"),
			},
		},
		{
			Name: "coupons",
			Columns: []core.ColumnSchema{
				pk(),
				col("code", core.TypeString),
				col("discount_percent", core.TypeNumber),
				col("discount_amount", core.TypeNumber),
			},
		},
		{
			Name: "orders",
			Columns: []core.ColumnSchema{
				pk(),
				col("initial_amount", core.TypeNumber),
				col("coupon_id", core.TypeNumber),
				col("user_id", core.TypeNumber),
			},
			Relations: []core.RelationSchema{
				manyToOne("coupon", "coupons", "coupon_id"),
				manyToOne("user", "users", "user_id"),
			},
		},
		{
			Name: "tickets",
			Columns: []core.ColumnSchema{
				pk(),
				col("subject", core.TypeString),
				col("is_resolved", core.TypeBoolean),
			},
		},
	}}
}
