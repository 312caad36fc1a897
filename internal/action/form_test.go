package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func moderateForm() *Definition {
	return &Definition{
		Name:  "Moderate",
		Scope: Single,
		Form: []FormField{
			{
				Label:    "User Name",
				Type:     TypeString,
				ReadOnly: true,
				Default: func(ctx context.Context, fc *FormContext) (any, error) {
					rec, err := fc.Record(ctx, "firstname")
					if err != nil || rec == nil {
						return nil, err
					}
					return rec["firstname"], nil
				},
			},
			{Label: "reason", Type: TypeEnum, EnumValues: []string{"resignation", "other"}, Required: true},
			{
				Label: "explanation",
				Type:  TypeString,
				If:    func(values map[string]any) bool { return values["reason"] == "other" },
			},
		},
		Execute: func(context.Context, *Context, ResultBuilder) (Result, error) { return Result{}, nil },
	}
}

func TestResolveForm(t *testing.T) {
	users := &fakeCollection{name: "users", records: []core.Record{{"id": int64(7), "firstname": "Jane"}}}
	def := moderateForm()
	require.NoError(t, def.Validate())

	states, err := def.ResolveForm(context.Background(), &FormContext{
		Selection: Selection{Collection: users, PrimaryKey: "id", IDs: []any{int64(7)}},
	})
	require.NoError(t, err)
	require.Len(t, states, 3)
	assert.Equal(t, "Jane", states[0].Value)
	assert.True(t, states[0].ReadOnly)
	assert.True(t, states[1].Visible)
	assert.False(t, states[2].Visible, "explanation is hidden until reason is other")

	states, err = def.ResolveForm(context.Background(), &FormContext{
		Selection: Selection{Collection: users, PrimaryKey: "id", IDs: []any{int64(7)}},
		Values:    map[string]any{"reason": "other", "User Name": "kept"},
	})
	require.NoError(t, err)
	assert.Equal(t, "kept", states[0].Value, "submitted values win over defaults")
	assert.True(t, states[2].Visible)
}

func TestCheckValues(t *testing.T) {
	def := moderateForm()
	assert.NoError(t, def.CheckValues(map[string]any{"reason": "resignation"}))
	assert.ErrorContains(t, def.CheckValues(map[string]any{"reason": ""}), "required")
	assert.ErrorContains(t, def.CheckValues(map[string]any{"reason": 3}), "must be one of")
}

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr string
	}{
		{name: "unknown scope", def: Definition{Scope: "Some", Execute: moderateForm().Execute}, wantErr: "unknown scope"},
		{name: "no execute", def: Definition{Scope: Bulk}, wantErr: "no execute"},
		{name: "enum without values", def: Definition{Scope: Bulk, Execute: moderateForm().Execute, Form: []FormField{{Label: "x", Type: TypeEnum}}}, wantErr: "has no values"},
		{name: "collection without name", def: Definition{Scope: Bulk, Execute: moderateForm().Execute, Form: []FormField{{Label: "x", Type: TypeCollection}}}, wantErr: "no collection name"},
		{name: "duplicate label", def: Definition{Scope: Bulk, Execute: moderateForm().Execute, Form: []FormField{{Label: "x", Type: TypeString}, {Label: "x", Type: TypeString}}}, wantErr: "declared twice"},
		{name: "bad field path", def: Definition{Scope: Bulk, Execute: moderateForm().Execute, Fields: []string{"a::b"}}, wantErr: "malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.def.Validate(), tt.wantErr)
		})
	}
}

func TestCollectionValue(t *testing.T) {
	v, ok := CollectionValue([]any{"3"})
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	v, ok = CollectionValue(int64(4))
	assert.True(t, ok)
	assert.Equal(t, int64(4), v)

	_, ok = CollectionValue([]any{})
	assert.False(t, ok)
	_, ok = CollectionValue(nil)
	assert.False(t, ok)
}

func TestDecodeValues(t *testing.T) {
	var form struct {
		Reason      string `form:"reason"`
		Explanation string `form:"explanation"`
		Count       int    `form:"count"`
	}
	err := DecodeValues(map[string]any{"reason": "other", "explanation": "spam", "count": "3"}, &form)
	require.NoError(t, err)
	assert.Equal(t, "other", form.Reason)
	assert.Equal(t, "spam", form.Explanation)
	assert.Equal(t, 3, form.Count)
}
