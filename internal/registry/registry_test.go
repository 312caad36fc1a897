package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/dag"
	"github.com/jeffladiray/forest-vercel-test/internal/testutil"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func constant(v any) ComputeFunc {
	return func(records []core.Record, _ Context) ([]any, error) {
		out := make([]any, len(records))
		for i := range out {
			out[i] = v
		}
		return out, nil
	}
}

func fullname() ComputedField {
	return ComputedField{
		ColumnType:   core.TypeString,
		Dependencies: []string{"firstname", "lastname"},
		Values:       constant("x"),
	}
}

func newBuilder(t *testing.T) *Builder {
	return NewBuilder(testutil.Schema(), testutil.NewTestLogger(t))
}

func requireConfigError(t *testing.T, err error, contains string) *core.ConfigurationError {
	t.Helper()
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorContains(t, err, contains)
	return cfgErr
}

func TestBuild_PhysicalFields(t *testing.T) {
	r, err := newBuilder(t).Build()
	require.NoError(t, err)

	users, ok := r.Collection("users")
	require.True(t, ok)
	assert.Equal(t, "id", users.PrimaryKey())

	f, ok := users.Field("firstname")
	require.True(t, ok)
	assert.Equal(t, Physical, f.Kind)
	assert.Equal(t, []string{"firstname"}, f.PhysicalDependencies())
	assert.Empty(t, users.ComputedFields())

	names := make([]string, 0)
	for _, c := range r.Collections() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"users", "addresses", "plans", "subscriptions", "coupons", "orders", "tickets"}, names)

	_, err = r.MustCollection("nope")
	var unknown *core.UnknownCollectionError
	assert.ErrorAs(t, err, &unknown)
}

func TestBuild_ResolvesNestedDependencies(t *testing.T) {
	b := newBuilder(t)
	b.Collection("users").
		AddField("fullname", fullname()).
		AddField("initials", ComputedField{ColumnType: core.TypeString, Dependencies: []string{"fullname"}, Values: constant("JD")}).
		AddField("plan_name", ComputedField{ColumnType: core.TypeString, Dependencies: []string{"subscription:plan:name"}, Values: constant("gold")})
	b.Collection("orders").
		AddField("buyer", ComputedField{ColumnType: core.TypeString, Dependencies: []string{"user:initials", "user:plan_name", "id"}, Values: constant("b")})

	r, err := b.Build()
	require.NoError(t, err)

	deps, err := r.Resolve("users", "initials")
	require.NoError(t, err)
	assert.Equal(t, []string{"firstname", "lastname"}, deps)

	deps, err = r.Resolve("orders", "buyer")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:firstname", "user:lastname", "user:subscription:plan:name", "id"}, deps)

	levels, err := r.Graph().ExecutionLevels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"users.fullname", "users.plan_name"},
		{"users.initials"},
		{"orders.buyer"},
	}, levels)

	users, _ := r.Collection("users")
	for name, want := range map[string]int{"fullname": 0, "plan_name": 0, "initials": 1} {
		f, _ := users.Field(name)
		assert.Equal(t, want, f.Level(), name)
	}
	orders, _ := r.Collection("orders")
	buyer, _ := orders.Field("buyer")
	assert.Equal(t, 2, buyer.Level())

	assert.Equal(t, []string{"users.fullname", "users.initials", "users.plan_name"}, r.ComputedUpstream("orders", "buyer"))
	assert.Equal(t, []string{"users.initials"}, r.Dependents("users", "fullname"))
	assert.Empty(t, r.Dependents("orders", "buyer"))

	owner, f, err := orders.Lookup(core.MustParsePath("user:fullname"))
	require.NoError(t, err)
	assert.Equal(t, "users", owner.Name)
	assert.True(t, f.IsComputed())
}

func TestBuild_DetectsCycles(t *testing.T) {
	b := newBuilder(t)
	b.Collection("users").
		AddField("a", ComputedField{ColumnType: core.TypeString, Dependencies: []string{"b"}, Values: constant(1)}).
		AddField("b", ComputedField{ColumnType: core.TypeString, Dependencies: []string{"addresses_count"}, Values: constant(1)}).
		AddField("addresses_count", ComputedField{ColumnType: core.TypeNumber, Dependencies: []string{"a"}, Values: constant(1)})

	_, err := b.Build()
	requireConfigError(t, err, "dependency cycle")
	var cycle *dag.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Len(t, cycle.Path, 4)
}

func TestBuild_DetectsCyclesAcrossRelations(t *testing.T) {
	b := newBuilder(t)
	b.Collection("users").AddField("last_order", ComputedField{ColumnType: core.TypeNumber, Dependencies: []string{"subscription:plan_label"}, Values: constant(1)})
	b.Collection("subscriptions").AddField("plan_label", ComputedField{ColumnType: core.TypeString, Dependencies: []string{"user:last_order"}, Values: constant(1)})

	_, err := b.Build()
	requireConfigError(t, err, "dependency cycle")
}

func TestBuild_SelfDependency(t *testing.T) {
	b := newBuilder(t)
	b.Collection("users").AddField("me", ComputedField{ColumnType: core.TypeString, Dependencies: []string{"me"}, Values: constant(1)})
	_, err := b.Build()
	requireConfigError(t, err, "dependency cycle")
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	noop := func(any, Context) (core.ConditionTree, error) { return nil, nil }
	execute := func(context.Context, *action.Context, action.ResultBuilder) (action.Result, error) {
		return action.Result{}, nil
	}

	tests := []struct {
		name      string
		customize func(b *Builder)
		wantErr   string
	}{
		{
			name:      "unknown collection",
			customize: func(b *Builder) { b.Collection("ghosts").AddField("x", fullname()) },
			wantErr:   "unknown collection",
		},
		{
			name: "missing dependency",
			customize: func(b *Builder) {
				b.Collection("users").AddField("x", ComputedField{ColumnType: core.TypeString, Dependencies: []string{"middlename"}, Values: constant(1)})
			},
			wantErr: `dependency "middlename" cannot be resolved`,
		},
		{
			name: "missing relation",
			customize: func(b *Builder) {
				b.Collection("orders").AddField("x", ComputedField{ColumnType: core.TypeString, Dependencies: []string{"voucher:code"}, Values: constant(1)})
			},
			wantErr: "cannot be resolved",
		},
		{
			name: "one to many dependency",
			customize: func(b *Builder) {
				b.Collection("users").AddField("x", ComputedField{ColumnType: core.TypeString, Dependencies: []string{"addresses:city"}, Values: constant(1)})
			},
			wantErr: "cannot be traversed",
		},
		{
			name:      "duplicate field",
			customize: func(b *Builder) { b.Collection("users").AddField("firstname", fullname()) },
			wantErr:   "already exists",
		},
		{
			name:      "relation name",
			customize: func(b *Builder) { b.Collection("users").AddField("subscription", fullname()) },
			wantErr:   "used by a relation",
		},
		{
			name: "no compute",
			customize: func(b *Builder) {
				b.Collection("users").AddField("x", ComputedField{ColumnType: core.TypeString})
			},
			wantErr: "exactly one of",
		},
		{
			name: "bad column type",
			customize: func(b *Builder) {
				b.Collection("users").AddField("x", ComputedField{ColumnType: "Money", Values: constant(1)})
			},
			wantErr: "unknown column type",
		},
		{
			name:      "operator on physical field",
			customize: func(b *Builder) { b.Collection("users").ReplaceFieldOperator("firstname", core.OpContains, noop) },
			wantErr:   "physical field",
		},
		{
			name:      "operator on unknown field",
			customize: func(b *Builder) { b.Collection("users").ReplaceFieldOperator("nickname", core.OpContains, noop) },
			wantErr:   "unknown field",
		},
		{
			name: "unknown operator",
			customize: func(b *Builder) {
				b.Collection("users").AddField("fullname", fullname()).ReplaceFieldOperator("fullname", "Like", noop)
			},
			wantErr: "unknown operator",
		},
		{
			name: "sort on computed",
			customize: func(b *Builder) {
				b.Collection("users").
					AddField("fullname", fullname()).
					AddField("other", fullname()).
					ReplaceFieldSorting("fullname", core.Sort{{Field: "other", Ascending: true}})
			},
			wantErr: "physical fields",
		},
		{
			name: "empty sort",
			customize: func(b *Builder) {
				b.Collection("users").AddField("fullname", fullname()).ReplaceFieldSorting("fullname", nil)
			},
			wantErr: "empty sort",
		},
		{
			name: "invalid action",
			customize: func(b *Builder) {
				b.Collection("tickets").AddAction("close", action.Definition{Scope: "Everything", Execute: execute})
			},
			wantErr: "unknown scope",
		},
		{
			name: "duplicate action",
			customize: func(b *Builder) {
				b.Collection("tickets").
					AddAction("close", action.Definition{Scope: action.Bulk, Execute: execute}).
					AddAction("close", action.Definition{Scope: action.Bulk, Execute: execute})
			},
			wantErr: "registered twice",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t)
			tt.customize(b)
			_, err := b.Build()
			requireConfigError(t, err, tt.wantErr)
		})
	}
}

func TestBuild_ReportsAllMistakes(t *testing.T) {
	b := newBuilder(t)
	b.Collection("users").
		AddField("firstname", fullname()).
		ReplaceFieldWriting("lastname", func(any, Context) (core.Record, error) { return nil, nil })

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorContains(t, err, "already exists")
	assert.ErrorContains(t, err, "physical field")
}

func TestBuild_Replacements(t *testing.T) {
	b := newBuilder(t)
	b.Customize("users", func(users *CollectionBuilder) {
		users.
			AddField("fullname", fullname()).
			ReplaceFieldOperator("fullname", core.OpContains, func(v any, _ Context) (core.ConditionTree, error) {
				return core.OrOf(core.Leaf("firstname", core.OpContains, v), core.Leaf("lastname", core.OpContains, v)), nil
			}).
			ReplaceFieldSorting("fullname", core.Sort{{Field: "firstname", Ascending: true}, {Field: "lastname", Ascending: true}}).
			ReplaceFieldWriting("fullname", func(any, Context) (core.Record, error) { return core.Record{}, nil })
	})
	b.Collection("tickets").AddAction("close", action.Definition{
		Scope: action.Bulk,
		Execute: func(context.Context, *action.Context, action.ResultBuilder) (action.Result, error) {
			return action.Result{}, nil
		},
	})

	r, err := b.Build()
	require.NoError(t, err)
	users, _ := r.Collection("users")
	f, _ := users.Field("fullname")

	_, ok := f.Operator(core.OpContains)
	assert.True(t, ok)
	_, ok = f.Operator(core.OpEqual)
	assert.False(t, ok)
	assert.Equal(t, []core.Operator{core.OpContains}, f.Operators())
	assert.Len(t, f.Sorting(), 2)
	assert.NotNil(t, f.Writer())

	tickets, _ := r.Collection("tickets")
	def, ok := tickets.Action("close")
	require.True(t, ok)
	assert.Equal(t, "close", def.Name)
	assert.Equal(t, []string{"close"}, tickets.ActionNames())
}

func TestBuild_NilSchema(t *testing.T) {
	_, err := NewBuilder(nil, nil).Build()
	requireConfigError(t, err, "no schema")
}
