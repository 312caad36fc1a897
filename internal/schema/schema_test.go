package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func TestDefault(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"addresses", "billing_infos", "comments", "coupons", "messages",
		"orders", "plans", "subscriptions", "tickets", "users",
	}, s.Names())

	users, ok := s.Collection("users")
	require.True(t, ok)
	assert.Equal(t, "id", users.PrimaryKey())
	rel, ok := users.Relation("subscription")
	require.True(t, ok)
	assert.Equal(t, core.OneToOne, rel.Kind)
	assert.Equal(t, "user_id", rel.ForeignKey)

	orders, _ := s.Collection("orders")
	coupon, ok := orders.Relation("coupon")
	require.True(t, ok)
	assert.True(t, coupon.Joinable())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
collections:
  - name: plans
    table: billing_plans
    columns:
      - {name: id, type: Number, primary_key: true}
      - {name: name, type: String}
`), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	plans, ok := s.Collection("plans")
	require.True(t, ok)
	assert.Equal(t, "billing_plans", plans.TableName())

	s, err = Load("")
	require.NoError(t, err)
	assert.Len(t, s.Collections, 10)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"malformed", "collections: [", "failed to parse schema"},
		{"empty", "collections: []", "no collections"},
		{"unknown type", `
collections:
  - name: plans
    columns:
      - {name: id, type: Integer}
`, `unknown type "Integer"`},
		{"unknown target", `
collections:
  - name: orders
    columns:
      - {name: id, type: Number}
      - {name: user_id, type: Number}
    relations:
      - {name: user, kind: ManyToOne, target: users, foreign_key: user_id, target_key: id}
`, `unknown collection "users"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read schema")
}
