// Package action runs named operations on a selection of records.
//
// An execution goes through Pending, Resolving (reading the declared
// fields of the selected records), Mutating (once the first write is
// issued) and ends in Succeeded or Failed. Every execution produces exactly
// one Result; a failed write always yields an Error result, and writes
// attempted after a failure are refused without reaching storage.
package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Scope tells how many records an action applies to.
type Scope string

const (
	// Single actions run on exactly one record.
	Single Scope = "Single"
	// Bulk actions run on one or more records.
	Bulk Scope = "Bulk"
	// Global actions run without a selection.
	Global Scope = "Global"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == Single || s == Bulk || s == Global
}

// ExecuteFunc is the body of an action. It returns a result built with rb;
// a returned error becomes an Error result carrying its text.
type ExecuteFunc func(ctx context.Context, ac *Context, rb ResultBuilder) (Result, error)

// Definition declares an action.
type Definition struct {
	// Name is filled in when the action is registered.
	Name  string
	Scope Scope
	Form  []FormField
	// Fields are read from the selected records before Execute runs.
	// No read happens when empty.
	Fields  []string
	Execute ExecuteFunc
}

// Validate checks the definition for declaration mistakes.
func (d *Definition) Validate() error {
	var errs []error
	if !d.Scope.Valid() {
		errs = append(errs, fmt.Errorf("unknown scope %q", d.Scope))
	}
	if d.Execute == nil {
		errs = append(errs, errors.New("no execute function"))
	}
	for _, f := range d.Fields {
		if _, err := core.ParsePath(f); err != nil {
			errs = append(errs, err)
		}
	}
	seen := make(map[string]bool, len(d.Form))
	for _, f := range d.Form {
		if f.Label == "" {
			errs = append(errs, errors.New("form field without a label"))
			continue
		}
		if seen[f.Label] {
			errs = append(errs, fmt.Errorf("form field %q declared twice", f.Label))
		}
		seen[f.Label] = true
		if err := f.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checkSelection verifies the number of selected records against the scope.
func (d *Definition) checkSelection(ids []any) error {
	switch d.Scope {
	case Single:
		if len(ids) != 1 {
			return fmt.Errorf("action %q applies to exactly one record, %d selected", d.Name, len(ids))
		}
	case Bulk:
		if len(ids) == 0 {
			return fmt.Errorf("action %q requires at least one selected record", d.Name)
		}
	}
	return nil
}

// Selection identifies the records an action runs on.
type Selection struct {
	Collection core.CollectionAccess
	PrimaryKey string
	IDs        []any
}

// Filter returns the condition matching the selected records, or nil
// (every record) when nothing is selected.
func (s Selection) Filter() core.ConditionTree {
	if len(s.IDs) == 0 {
		return nil
	}
	return core.Leaf(s.PrimaryKey, core.OpIn, s.IDs)
}

// Read lists the given fields of the selected records. The primary key is always read.
func (s Selection) Read(ctx context.Context, fields []string) ([]core.Record, error) {
	projection := core.NewProjection(s.PrimaryKey).Union(fields...)
	return s.Collection.List(ctx, core.PaginatedFilter{ConditionTree: s.Filter()}, projection)
}
