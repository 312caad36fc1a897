package duckdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func couponCatalog() *core.Schema {
	return &core.Schema{Collections: []*core.CollectionSchema{{
		Name: "coupons",
		Columns: []core.ColumnSchema{
			{Name: "id", Type: core.TypeNumber, PrimaryKey: true},
			{Name: "code", Type: core.TypeString},
		},
	}}}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "extensions and settings",
			input: map[string]any{
				"extensions": []any{"json"},
				"settings":   map[string]any{"threads": 4},
			},
			want: &Params{
				Extensions: []string{"json"},
				Settings:   map[string]string{"threads": "4"},
			},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"secrets": []any{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionStatements(t *testing.T) {
	stmts := sessionStatements(&Params{
		Extensions: []string{"json", "bad;ext"},
		Settings:   map[string]string{"threads": "2", "memory_limit": "1GB", "bad key": "x"},
	})
	assert.Equal(t, []string{
		"INSTALL json", "LOAD json",
		"SET memory_limit = '1GB'",
		"SET threads = '2'",
	}, stmts)
}

func TestAdapter_Connect(t *testing.T) {
	adp := New(nil)
	ctx := context.Background()
	require.NoError(t, adp.Connect(ctx, adapter.Config{Catalog: couponCatalog()}))
	defer func() { _ = adp.Close() }()
	assert.True(t, adp.IsConnected())

	require.NoError(t, adp.Exec(ctx, `CREATE TABLE coupons (id INTEGER PRIMARY KEY, code VARCHAR)`))
	require.NoError(t, adp.Exec(ctx, `INSERT INTO coupons VALUES (1, 'SPRING'), (2, 'summer')`))

	records, err := adp.Read(ctx, "coupons", core.PaginatedFilter{
		ConditionTree: core.Leaf("code", core.OpIContains, "RING"),
	}, core.NewProjection("id", "code"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SPRING", records[0]["code"])
}

func TestAdapter_NotConnected(t *testing.T) {
	adp := New(nil)
	err := adp.Update(context.Background(), "coupons", nil, core.Record{"code": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection not established")
}
