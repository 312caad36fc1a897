package compute

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/internal/rewrite"
	"github.com/jeffladiray/forest-vercel-test/internal/testutil"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

type fixture struct {
	reg   *registry.Registry
	rw    *rewrite.Rewriter
	calls map[string]*atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{calls: map[string]*atomic.Int32{"fullname": {}, "greeting": {}, "remote": {}}}

	b := registry.NewBuilder(testutil.Schema(), testutil.NewTestLogger(t))
	b.Collection("users").
		AddField("fullname", registry.ComputedField{
			ColumnType:   core.TypeString,
			Dependencies: []string{"firstname", "lastname"},
			Values: func(records []core.Record, _ registry.Context) ([]any, error) {
				fx.calls["fullname"].Add(1)
				out := make([]any, len(records))
				for i, r := range records {
					// Only the declared dependencies are handed over.
					if len(r) != 2 {
						return nil, fmt.Errorf("unexpected record %v", r)
					}
					out[i] = fmt.Sprintf("%v %v", r["firstname"], r["lastname"])
				}
				return out, nil
			},
		}).
		AddField("greeting", registry.ComputedField{
			ColumnType:   core.TypeString,
			Dependencies: []string{"fullname"},
			Values: func(records []core.Record, _ registry.Context) ([]any, error) {
				fx.calls["greeting"].Add(1)
				out := make([]any, len(records))
				for i, r := range records {
					out[i] = "Hello " + r["fullname"].(string)
				}
				return out, nil
			},
		}).
		AddField("remote", registry.ComputedField{
			ColumnType:   core.TypeNumber,
			Dependencies: []string{"id"},
			ValuesContext: func(ctx context.Context, records []core.Record, c registry.Context) ([]any, error) {
				fx.calls["remote"].Add(1)
				assert.Equal(t, "users", c.CollectionName)
				out := make([]any, len(records))
				for i, r := range records {
					out[i] = r["id"]
				}
				return out, ctx.Err()
			},
		})
	reg, err := b.Build()
	require.NoError(t, err)
	fx.reg = reg
	fx.rw = rewrite.New(reg, nil, nil)
	return fx
}

func TestRun_PreservesOrderAndLevels(t *testing.T) {
	fx := newFixture(t)
	plan, err := fx.rw.Expand("users", []string{"greeting", "remote"})
	require.NoError(t, err)

	records := []core.Record{
		{"id": int64(3), "firstname": "Zoe", "lastname": "Adams"},
		{"id": int64(1), "firstname": "Al", "lastname": "Berg"},
		{"id": int64(2), "firstname": "Jane", "lastname": "Doe"},
	}
	require.NoError(t, New(nil, testutil.NewTestLogger(t)).Run(context.Background(), plan, records))

	assert.Equal(t, []any{"Hello Zoe Adams", "Hello Al Berg", "Hello Jane Doe"},
		[]any{records[0]["greeting"], records[1]["greeting"], records[2]["greeting"]})
	assert.Equal(t, int64(3), records[0]["remote"])
	for name, n := range fx.calls {
		assert.Equal(t, int32(1), n.Load(), "one call per field per batch for %s", name)
	}
}

func TestRun_ThroughRelations(t *testing.T) {
	fx := newFixture(t)
	plan, err := fx.rw.Expand("orders", []string{"id", "user:greeting"})
	require.NoError(t, err)

	records := []core.Record{
		{"id": int64(10), "user": core.Record{"firstname": "Jane", "lastname": "Doe"}},
		{"id": int64(11), "user": core.Record(nil)},
		{"id": int64(12), "user": core.Record{"firstname": "Al", "lastname": "Berg"}},
	}
	require.NoError(t, New(nil, nil).Run(context.Background(), plan, records))

	assert.Equal(t, "Hello Jane Doe", records[0].Value("user:greeting"))
	assert.Nil(t, records[1].Relation("user"), "missing relation stays nil")
	assert.Equal(t, "Hello Al Berg", records[2].Value("user:greeting"))
}

func TestRun_EmptyBatch(t *testing.T) {
	fx := newFixture(t)
	plan, err := fx.rw.Expand("users", []string{"greeting", "remote"})
	require.NoError(t, err)

	require.NoError(t, New(nil, nil).Run(context.Background(), plan, nil))
	for name, n := range fx.calls {
		assert.Zero(t, n.Load(), "%s must not run on an empty batch", name)
	}
}

func TestBatch(t *testing.T) {
	fx := newFixture(t)
	users, _ := fx.reg.Collection("users")
	f, _ := users.Field("fullname")
	c := New(nil, nil)

	got, err := c.Batch(context.Background(), "users", f, []core.Record{{"firstname": "A", "lastname": "B"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"A B"}, got)

	got, err = c.Batch(context.Background(), "users", f, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)

	phys, _ := users.Field("firstname")
	_, err = c.Batch(context.Background(), "users", phys, []core.Record{{}})
	assert.Error(t, err)
}

func TestBatch_Errors(t *testing.T) {
	b := registry.NewBuilder(testutil.Schema(), nil)
	b.Collection("users").
		AddField("short", registry.ComputedField{
			ColumnType:   core.TypeNumber,
			Dependencies: []string{"id"},
			Values: func([]core.Record, registry.Context) ([]any, error) {
				return []any{1}, nil
			},
		}).
		AddField("failing", registry.ComputedField{
			ColumnType: core.TypeNumber,
			ValuesContext: func(context.Context, []core.Record, registry.Context) ([]any, error) {
				return nil, errors.New("storage down")
			},
		})
	reg, err := b.Build()
	require.NoError(t, err)
	users, _ := reg.Collection("users")
	c := New(nil, nil)
	records := []core.Record{{"id": 1}, {"id": 2}}

	short, _ := users.Field("short")
	_, err = c.Batch(context.Background(), "users", short, records)
	var mismatch *LengthMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.Got)
	assert.Equal(t, 2, mismatch.Want)

	failing, _ := users.Field("failing")
	_, err = c.Batch(context.Background(), "users", failing, records)
	assert.ErrorContains(t, err, "storage down")

	plan, err := rewrite.New(reg, nil, nil).Expand("users", []string{"short", "failing"})
	require.NoError(t, err)
	assert.Error(t, c.Run(context.Background(), plan, records))
	_, assigned := records[0]["short"]
	assert.False(t, assigned, "no value is assigned when a level fails")
}
