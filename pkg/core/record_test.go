package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func order() core.Record {
	return core.Record{
		"id":     int64(1),
		"amount": 100.0,
		"coupon": core.Record{"name": "TEN", "discount_percent": 10.0},
		"user":   core.Record(nil),
	}
}

func TestRecord_Get(t *testing.T) {
	r := order()

	tests := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{path: "id", want: int64(1), wantOK: true},
		{path: "coupon:name", want: "TEN", wantOK: true},
		{path: "coupon", want: core.Record{"name": "TEN", "discount_percent": 10.0}, wantOK: true},
		{path: "user:firstname"},
		{path: "missing"},
		{path: "amount:value"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := r.Get(core.MustParsePath(tt.path))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_Value(t *testing.T) {
	r := core.Record{"user": map[string]any{"firstname": "Jane"}}
	assert.Equal(t, "Jane", r.Value("user:firstname"), "plain maps are traversed")
	assert.Nil(t, r.Value("user::firstname"))
}

func TestRecord_Set(t *testing.T) {
	r := core.Record{"user": core.Record(nil)}

	r.Set(core.MustParsePath("coupon:name"), "TEN")
	assert.Equal(t, core.Record{"name": "TEN"}, r["coupon"])

	r.Set(core.MustParsePath("user:firstname"), "Jane")
	assert.Nil(t, r.Relation("user"), "a missing relation is not created")

	r.Set(core.LocalPath("id"), int64(2))
	assert.Equal(t, int64(2), r["id"])
}

func TestRecord_Project(t *testing.T) {
	r := order()

	got := r.Project([]core.FieldPath{
		core.MustParsePath("id"),
		core.MustParsePath("coupon:name"),
		core.MustParsePath("user:firstname"),
		core.MustParsePath("missing"),
	})

	assert.Equal(t, core.Record{
		"id":     int64(1),
		"coupon": core.Record{"name": "TEN"},
		"user":   core.Record(nil),
	}, got)
}

func TestRecord_Clone(t *testing.T) {
	r := order()
	c := r.Clone()

	c.Relation("coupon")["name"] = "changed"
	assert.Equal(t, "TEN", r.Value("coupon:name"))
	assert.Nil(t, core.Record(nil).Clone())
}
