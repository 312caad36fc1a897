package customizations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/customizations"
	"github.com/jeffladiray/forest-vercel-test/internal/engine"
	"github.com/jeffladiray/forest-vercel-test/internal/testutil"
	"github.com/jeffladiray/forest-vercel-test/pkg/adapters/memory"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

type store struct {
	engine *engine.Engine
	db     *memory.Adapter
}

func newStore(t *testing.T) *store {
	t.Helper()
	s, db := testutil.Store(t)
	e, err := engine.New(engine.Config{
		Schema: s,
		Customize: customizations.Apply(customizations.Options{
			ImpersonationURL: "https://admin.example.com/impersonate",
			AdminToken:       "token",
		}),
		Adapter: db,
		Logger:  testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return &store{engine: e, db: db}
}

func (s *store) list(t *testing.T, collection string, filter core.PaginatedFilter, fields ...string) []core.Record {
	t.Helper()
	records, err := s.engine.List(context.Background(), collection, filter, fields)
	require.NoError(t, err)
	return records
}

func (s *store) row(t *testing.T, collection string, id int64) core.Record {
	t.Helper()
	for _, r := range s.db.Rows(collection) {
		if r["id"] == id {
			return r
		}
	}
	t.Fatalf("no %s row with id %d", collection, id)
	return nil
}

func (s *store) execute(t *testing.T, collection, name string, ids []any, values map[string]any) action.Result {
	t.Helper()
	res, err := s.engine.ExecuteAction(context.Background(), collection, name, ids, values)
	require.NoError(t, err)
	return res
}

func values(records []core.Record, field string) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r.Value(field)
	}
	return out
}

func TestApply_Registers(t *testing.T) {
	s := newStore(t)
	reg := s.engine.Registry()

	users, _ := reg.Collection("users")
	assert.Equal(t, []string{"Anonymize user", "Change a plan", "Reset password", "Moderate", "Impersonate this user"}, users.ActionNames())
	fullname, ok := users.Field("fullname")
	require.True(t, ok)
	assert.Equal(t, []core.Operator{core.OpContains, core.OpEqual}, fullname.Operators())

	deps, err := reg.Resolve("orders", "amount_with_discount")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"coupon:discount_percent", "coupon:discount_amount", "initial_amount"}, deps)
}
