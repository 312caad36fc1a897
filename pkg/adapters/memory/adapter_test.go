package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func seeded(t *testing.T) *Adapter {
	t.Helper()
	catalog := &core.Schema{Collections: []*core.CollectionSchema{
		{
			Name: "users",
			Columns: []core.ColumnSchema{
				{Name: "id", Type: core.TypeNumber, PrimaryKey: true},
				{Name: "firstname", Type: core.TypeString},
			},
			Relations: []core.RelationSchema{
				{Name: "subscription", Kind: core.OneToOne, Target: "subscriptions", ForeignKey: "user_id", TargetKey: "id"},
			},
		},
		{
			Name: "subscriptions",
			Columns: []core.ColumnSchema{
				{Name: "id", Type: core.TypeNumber, PrimaryKey: true},
				{Name: "user_id", Type: core.TypeNumber},
				{Name: "plan_id", Type: core.TypeNumber},
			},
			Relations: []core.RelationSchema{
				{Name: "user", Kind: core.ManyToOne, Target: "users", ForeignKey: "user_id", TargetKey: "id"},
			},
		},
	}}
	a := New(nil)
	require.NoError(t, a.Connect(context.Background(), adapter.Config{Catalog: catalog}))
	a.Seed("users",
		core.Record{"id": 1, "firstname": "Jane"},
		core.Record{"id": 2, "firstname": "John"},
		core.Record{"id": 3, "firstname": "Ada"},
	)
	a.Seed("subscriptions",
		core.Record{"id": 10, "user_id": 1, "plan_id": 7},
		core.Record{"id": 11, "user_id": 3, "plan_id": 7},
	)
	return a
}

func TestAdapter_Read(t *testing.T) {
	a := seeded(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter core.PaginatedFilter
		want   []any
	}{
		{
			name:   "filter through relation",
			filter: core.PaginatedFilter{ConditionTree: core.Leaf("subscription:plan_id", core.OpEqual, 7)},
			want:   []any{1, 3},
		},
		{
			name:   "sorted descending with page",
			filter: core.PaginatedFilter{Sort: core.Sort{{Field: "firstname", Ascending: false}}, Page: &core.Page{Skip: 1, Limit: 1}},
			want:   []any{1},
		},
		{
			name:   "in empty list",
			filter: core.PaginatedFilter{ConditionTree: core.Leaf("id", core.OpIn, []any{})},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := a.Read(ctx, "users", tt.filter, core.NewProjection("id"))
			require.NoError(t, err)
			var ids []any
			for _, r := range records {
				ids = append(ids, r["id"])
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestAdapter_ReadNilRelation(t *testing.T) {
	a := seeded(t)
	records, err := a.Read(context.Background(), "users",
		core.PaginatedFilter{ConditionTree: core.Leaf("id", core.OpEqual, 2)},
		core.NewProjection("id", "subscription:plan_id"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.Record{"id": 2, "subscription": core.Record(nil)}, records[0])
}

func TestAdapter_ReadUnknownField(t *testing.T) {
	a := seeded(t)
	_, err := a.Read(context.Background(), "users", core.PaginatedFilter{}, core.NewProjection("subscription:nope"))
	var unknown *core.UnknownFieldError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "subscriptions", unknown.Collection)
}

func TestAdapter_UpdateAndCreate(t *testing.T) {
	a := seeded(t)
	ctx := context.Background()

	require.NoError(t, a.Update(ctx, "subscriptions", core.Leaf("user:firstname", core.OpEqual, "Ada"), core.Record{"plan_id": 8}))
	rows := a.Rows("subscriptions")
	assert.Equal(t, 7, rows[0]["plan_id"])
	assert.Equal(t, 8, rows[1]["plan_id"])

	created, err := a.Create(ctx, "users", []core.Record{{"firstname": "Grace"}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created[0]["id"])

	_, err = a.Create(ctx, "users", []core.Record{{"firstname": "ok"}, {"nickname": "bad"}})
	require.Error(t, err)
	assert.Len(t, a.Rows("users"), 4, "a rejected batch stores nothing")
}

func TestAdapter_RawAggregate(t *testing.T) {
	a := seeded(t)
	rows, err := a.RawAggregate(context.Background(), "subscriptions", "plan_id", []any{int64(7), 9})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].Count)
}
