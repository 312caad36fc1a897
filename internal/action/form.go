package action

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-viper/mapstructure/v2"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// FieldType is the widget type of a form field.
type FieldType string

// Form field types.
const (
	TypeString     FieldType = "String"
	TypeNumber     FieldType = "Number"
	TypeBoolean    FieldType = "Boolean"
	TypeDate       FieldType = "Date"
	TypeEnum       FieldType = "Enum"
	TypeCollection FieldType = "Collection"
	TypeJSON       FieldType = "Json"
)

var fieldTypes = []FieldType{TypeString, TypeNumber, TypeBoolean, TypeDate, TypeEnum, TypeCollection, TypeJSON}

// FormField is one input of an action form. Values are keyed by Label.
type FormField struct {
	Label       string
	Type        FieldType
	Description string
	Required    bool
	ReadOnly    bool
	// CollectionName is the collection a Collection field picks a record from.
	CollectionName string
	EnumValues     []string
	// Default computes the initial value from the selected records.
	Default func(ctx context.Context, fc *FormContext) (any, error)
	// If hides the field when it returns false for the current values.
	If func(values map[string]any) bool
}

func (f FormField) validate() error {
	switch {
	case !slices.Contains(fieldTypes, f.Type):
		return fmt.Errorf("form field %q has unknown type %q", f.Label, f.Type)
	case f.Type == TypeEnum && len(f.EnumValues) == 0:
		return fmt.Errorf("enum form field %q has no values", f.Label)
	case f.Type == TypeCollection && f.CollectionName == "":
		return fmt.Errorf("collection form field %q has no collection name", f.Label)
	}
	return nil
}

func (f FormField) visible(values map[string]any) bool {
	return f.If == nil || f.If(values)
}

// FormContext gives default values access to the selection.
type FormContext struct {
	Selection Selection
	Values    map[string]any
}

// Record reads the given fields of the first selected record.
// It returns a nil record when nothing matches.
func (fc *FormContext) Record(ctx context.Context, fields ...string) (core.Record, error) {
	records, err := fc.Selection.Read(ctx, fields)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// FieldState is a form field as presented for a selection.
type FieldState struct {
	Label          string    `json:"label"`
	Type           FieldType `json:"type"`
	Description    string    `json:"description,omitempty"`
	Required       bool      `json:"is_required"`
	ReadOnly       bool      `json:"is_read_only"`
	CollectionName string    `json:"collection_name,omitempty"`
	EnumValues     []string  `json:"enum_values,omitempty"`
	Value          any       `json:"value"`
	Visible        bool      `json:"visible"`
}

// ResolveForm computes default values and visibility for the selection.
// Values already present in fc.Values take precedence over defaults.
func (d *Definition) ResolveForm(ctx context.Context, fc *FormContext) ([]FieldState, error) {
	values := make(map[string]any, len(d.Form))
	for k, v := range fc.Values {
		values[k] = v
	}
	for _, f := range d.Form {
		if _, set := values[f.Label]; set || f.Default == nil {
			continue
		}
		v, err := f.Default(ctx, &FormContext{Selection: fc.Selection, Values: values})
		if err != nil {
			return nil, fmt.Errorf("default value of %q: %w", f.Label, err)
		}
		values[f.Label] = v
	}

	states := make([]FieldState, len(d.Form))
	for i, f := range d.Form {
		states[i] = FieldState{
			Label:          f.Label,
			Type:           f.Type,
			Description:    f.Description,
			Required:       f.Required,
			ReadOnly:       f.ReadOnly,
			CollectionName: f.CollectionName,
			EnumValues:     f.EnumValues,
			Value:          values[f.Label],
			Visible:        f.visible(values),
		}
	}
	return states, nil
}

// CheckValues verifies submitted values: visible required fields must be
// filled and enum values must be allowed.
func (d *Definition) CheckValues(values map[string]any) error {
	var errs []error
	for _, f := range d.Form {
		if !f.visible(values) {
			continue
		}
		v := values[f.Label]
		if isEmpty(v) {
			if f.Required {
				errs = append(errs, fmt.Errorf("field %q is required", f.Label))
			}
			continue
		}
		if f.Type == TypeEnum {
			s, ok := v.(string)
			if !ok || !slices.Contains(f.EnumValues, s) {
				errs = append(errs, fmt.Errorf("field %q must be one of %v, got %v", f.Label, f.EnumValues, v))
			}
		}
	}
	return errors.Join(errs...)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	return false
}

// CollectionValue returns the picked record id of a Collection field value,
// which is either the id itself or a one-element list holding it.
func CollectionValue(v any) (any, bool) {
	if values, ok := core.ValuesOf(v); ok {
		if len(values) != 1 || values[0] == nil {
			return nil, false
		}
		return values[0], true
	}
	return v, v != nil
}

// DecodeValues decodes form values into out, a pointer to a struct whose
// fields carry `form:"<label>"` tags.
func DecodeValues(values map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(values); err != nil {
		return fmt.Errorf("decode form values: %w", err)
	}
	return nil
}
