package registry

import (
	"context"
	"log/slog"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// FieldKind discriminates physical columns from computed fields.
type FieldKind int

const (
	// Physical fields are columns of the underlying table.
	Physical FieldKind = iota
	// Computed fields are derived from their dependencies at read time.
	Computed
)

func (k FieldKind) String() string {
	if k == Computed {
		return "computed"
	}
	return "physical"
}

// Context is the capability handed to computations and replacements.
// It is the only way customization code reaches storage.
type Context struct {
	// CollectionName is the collection the customization is registered on.
	CollectionName string
	// DataSource reads and writes collections through the translation layer.
	DataSource core.DataSource
	Logger     *slog.Logger
}

// Collection returns access to a collection of the data source.
func (c Context) Collection(name string) (core.CollectionAccess, error) {
	return c.DataSource.Collection(name)
}

// Self returns access to the collection the customization is registered on.
func (c Context) Self() (core.CollectionAccess, error) {
	return c.DataSource.Collection(c.CollectionName)
}

// ComputeFunc computes the values of a field for a batch of records.
// Records only hold the declared dependencies. The result must have one
// value per record, in the same order.
type ComputeFunc func(records []core.Record, c Context) ([]any, error)

// ComputeContextFunc is a ComputeFunc allowed to query storage. It is called
// once per batch, so it is expected to issue one batched call.
type ComputeContextFunc func(ctx context.Context, records []core.Record, c Context) ([]any, error)

// OperatorReplacer returns a condition tree equivalent to applying an
// operator with the given value to a computed field.
type OperatorReplacer func(value any, c Context) (core.ConditionTree, error)

// WriteReplacer decomposes a value written to a computed field into
// assignments on other fields of the same collection.
type WriteReplacer func(value any, c Context) (core.Record, error)

// ComputedField declares a field that has no column.
// Exactly one of Values and ValuesContext must be set.
type ComputedField struct {
	ColumnType core.ColumnType
	// Dependencies are field paths ("firstname", "coupon:discount_percent")
	// the computation reads.
	Dependencies []string
	// Values computes synchronously from the dependencies.
	Values ComputeFunc
	// ValuesContext computes by querying storage.
	ValuesContext ComputeContextFunc
	// EnumValues lists the allowed values of an Enum field.
	EnumValues []string
}

// Field is one entry of a collection: a column or a computed field.
// Fields are immutable once the registry is built.
type Field struct {
	Name string
	Kind FieldKind
	Type core.ColumnType

	// Column is set for physical fields.
	Column core.ColumnSchema
	// Computed is set for computed fields.
	Computed *ComputedField

	dependencies []core.FieldPath
	operators    map[core.Operator]OperatorReplacer
	sorting      core.Sort
	writer       WriteReplacer
	physical     []string
	level        int
}

// IsComputed reports whether the field has no column.
func (f *Field) IsComputed() bool { return f.Kind == Computed }

// Dependencies returns the declared dependency paths of a computed field.
func (f *Field) Dependencies() []core.FieldPath { return f.dependencies }

// Operator returns the replacement registered for op, if any.
func (f *Field) Operator(op core.Operator) (OperatorReplacer, bool) {
	fn, ok := f.operators[op]
	return fn, ok
}

// Operators lists the operators with a registered replacement.
func (f *Field) Operators() []core.Operator {
	ops := make([]core.Operator, 0, len(f.operators))
	for op := range f.operators {
		ops = append(ops, op)
	}
	sortOperators(ops)
	return ops
}

// Sorting returns the sort replacing this field, or nil when the field cannot be sorted on.
func (f *Field) Sorting() core.Sort { return f.sorting }

// Writer returns the write replacement, or nil for a read-only computed field.
func (f *Field) Writer() WriteReplacer { return f.writer }

// Level is the execution level of a computed field in the dependency graph:
// 0 when it reads only physical fields, otherwise one more than the highest
// level among the computed fields it reads.
func (f *Field) Level() int { return f.level }

// PhysicalDependencies returns the physical field paths, relative to the
// owning collection, needed to compute this field. For a physical field it
// is the field itself.
func (f *Field) PhysicalDependencies() []string { return f.physical }
