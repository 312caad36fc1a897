package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/dag"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Builder collects customizations before they are validated and frozen
// into a Registry.
type Builder struct {
	schema      *core.Schema
	logger      *slog.Logger
	collections map[string]*CollectionBuilder
	order       []string
}

// CollectionBuilder registers customizations on one collection.
// Methods return the builder so calls can be chained; mistakes are reported
// by Builder.Build.
type CollectionBuilder struct {
	name      string
	computed  []namedField
	operators []operatorReplacement
	sorts     []sortReplacement
	writers   []writeReplacement
	actions   []namedAction
}

type namedField struct {
	name string
	def  ComputedField
}

type operatorReplacement struct {
	field string
	op    core.Operator
	fn    OperatorReplacer
}

type sortReplacement struct {
	field string
	sort  core.Sort
}

type writeReplacement struct {
	field string
	fn    WriteReplacer
}

type namedAction struct {
	name string
	def  action.Definition
}

// NewBuilder creates a builder over the given physical schema.
func NewBuilder(schema *core.Schema, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		schema:      schema,
		logger:      logger,
		collections: make(map[string]*CollectionBuilder),
	}
}

// Collection returns the builder of the named collection, creating it on first use.
func (b *Builder) Collection(name string) *CollectionBuilder {
	if cb, ok := b.collections[name]; ok {
		return cb
	}
	cb := &CollectionBuilder{name: name}
	b.collections[name] = cb
	b.order = append(b.order, name)
	return cb
}

// Customize runs fn on the builder of the named collection.
func (b *Builder) Customize(name string, fn func(*CollectionBuilder)) *Builder {
	fn(b.Collection(name))
	return b
}

// AddField registers a computed field.
func (cb *CollectionBuilder) AddField(name string, def ComputedField) *CollectionBuilder {
	cb.computed = append(cb.computed, namedField{name: name, def: def})
	return cb
}

// ReplaceFieldOperator makes op usable in filters on a computed field.
func (cb *CollectionBuilder) ReplaceFieldOperator(field string, op core.Operator, fn OperatorReplacer) *CollectionBuilder {
	cb.operators = append(cb.operators, operatorReplacement{field: field, op: op, fn: fn})
	return cb
}

// ReplaceFieldSorting makes a computed field sortable. Sorting on the field
// ascending sorts on the given entries; descending inverts every entry.
func (cb *CollectionBuilder) ReplaceFieldSorting(field string, sort core.Sort) *CollectionBuilder {
	cb.sorts = append(cb.sorts, sortReplacement{field: field, sort: sort})
	return cb
}

// ReplaceFieldWriting makes a computed field writable.
func (cb *CollectionBuilder) ReplaceFieldWriting(field string, fn WriteReplacer) *CollectionBuilder {
	cb.writers = append(cb.writers, writeReplacement{field: field, fn: fn})
	return cb
}

// AddAction registers an action.
func (cb *CollectionBuilder) AddAction(name string, def action.Definition) *CollectionBuilder {
	cb.actions = append(cb.actions, namedAction{name: name, def: def})
	return cb
}

// Build validates every customization, resolves the physical dependencies of
// computed fields and returns the frozen registry. All declaration mistakes
// are returned together, each as a *core.ConfigurationError.
func (b *Builder) Build() (*Registry, error) {
	if b.schema == nil {
		return nil, &core.ConfigurationError{Reason: "no schema"}
	}
	if err := b.schema.Validate(); err != nil {
		return nil, &core.ConfigurationError{Reason: "invalid schema", Cause: err}
	}

	r := &Registry{
		schema:      b.schema,
		collections: make(map[string]*Collection, len(b.schema.Collections)),
		graph:       dag.NewGraph[*Field](),
	}
	for _, cs := range b.schema.Collections {
		c := &Collection{
			Name:     cs.Name,
			Schema:   cs,
			registry: r,
			fields:   make(map[string]*Field, len(cs.Columns)),
			actions:  make(map[string]*action.Definition),
		}
		for _, col := range cs.Columns {
			c.addField(&Field{
				Name:     col.Name,
				Kind:     Physical,
				Type:     col.Type,
				Column:   col,
				physical: []string{col.Name},
			})
		}
		r.collections[cs.Name] = c
		r.order = append(r.order, cs.Name)
	}

	var errs []error
	for _, name := range b.order {
		c, ok := r.collections[name]
		if !ok {
			errs = append(errs, &core.ConfigurationError{
				Collection: name,
				Reason:     "unknown collection",
				Cause:      &core.UnknownCollectionError{Name: name, Available: r.order},
			})
			continue
		}
		errs = append(errs, b.collections[name].apply(c)...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := r.link(); err != nil {
		return nil, err
	}
	if err := r.resolveAll(); err != nil {
		return nil, err
	}
	if err := r.assignLevels(); err != nil {
		return nil, err
	}

	b.logger.Debug("registry built",
		slog.Int("collections", len(r.order)),
		slog.Int("computed_fields", r.graph.NodeCount()),
		slog.Int("dependency_edges", r.graph.EdgeCount()))
	return r, nil
}

func (c *Collection) addField(f *Field) {
	c.fields[f.Name] = f
	c.fieldOrder = append(c.fieldOrder, f.Name)
}

// apply installs the customizations of cb on c and returns every mistake found.
func (cb *CollectionBuilder) apply(c *Collection) []error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &core.ConfigurationError{Collection: c.Name, Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	for _, nf := range cb.computed {
		def := nf.def
		switch {
		case nf.name == "":
			fail("", "computed field without a name")
			continue
		case c.fields[nf.name] != nil:
			fail(nf.name, "field already exists")
			continue
		case hasRelation(c.Schema, nf.name):
			fail(nf.name, "name is already used by a relation")
			continue
		case !def.ColumnType.Valid():
			fail(nf.name, "unknown column type %q", def.ColumnType)
			continue
		case (def.Values == nil) == (def.ValuesContext == nil):
			fail(nf.name, "exactly one of Values and ValuesContext must be set")
			continue
		}
		deps := make([]core.FieldPath, 0, len(def.Dependencies))
		valid := true
		for _, d := range def.Dependencies {
			p, err := core.ParsePath(d)
			if err != nil {
				errs = append(errs, &core.ConfigurationError{Collection: c.Name, Field: nf.name, Reason: "malformed dependency", Cause: err})
				valid = false
				continue
			}
			deps = append(deps, p)
		}
		if !valid {
			continue
		}
		def.Dependencies = append([]string(nil), def.Dependencies...)
		c.addField(&Field{
			Name:         nf.name,
			Kind:         Computed,
			Type:         def.ColumnType,
			Computed:     &def,
			dependencies: deps,
		})
	}

	computed := func(field, what string) *Field {
		f, ok := c.fields[field]
		if !ok {
			fail(field, "cannot replace %s of an unknown field", what)
			return nil
		}
		if !f.IsComputed() {
			fail(field, "cannot replace %s of a physical field", what)
			return nil
		}
		return f
	}

	for _, o := range cb.operators {
		f := computed(o.field, "operator "+string(o.op))
		switch {
		case f == nil:
		case !o.op.Valid():
			fail(o.field, "unknown operator %q", o.op)
		case o.fn == nil:
			fail(o.field, "nil replacement for operator %s", o.op)
		default:
			if f.operators == nil {
				f.operators = make(map[core.Operator]OperatorReplacer)
			}
			f.operators[o.op] = o.fn
		}
	}

	for _, s := range cb.sorts {
		f := computed(s.field, "sorting")
		switch {
		case f == nil:
		case len(s.sort) == 0:
			fail(s.field, "empty sort replacement")
		default:
			f.sorting = append(core.Sort(nil), s.sort...)
		}
	}

	for _, w := range cb.writers {
		f := computed(w.field, "writing")
		switch {
		case f == nil:
		case w.fn == nil:
			fail(w.field, "nil write replacement")
		default:
			f.writer = w.fn
		}
	}

	for _, na := range cb.actions {
		if na.name == "" {
			fail("", "action without a name")
			continue
		}
		if _, dup := c.actions[na.name]; dup {
			fail("", "action %q registered twice", na.name)
			continue
		}
		def := na.def
		if err := def.Validate(); err != nil {
			errs = append(errs, &core.ConfigurationError{Collection: c.Name, Reason: fmt.Sprintf("action %q", na.name), Cause: err})
			continue
		}
		def.Name = na.name
		c.actions[na.name] = &def
		c.actionOrder = append(c.actionOrder, na.name)
	}
	return errs
}

func hasRelation(cs *core.CollectionSchema, name string) bool {
	_, ok := cs.Relation(name)
	return ok
}

// link checks that every dependency and sort replacement resolves, and
// fills the dependency graph. A cycle is reported as a ConfigurationError.
func (r *Registry) link() error {
	for _, c := range r.Collections() {
		for _, f := range c.ComputedFields() {
			r.graph.AddNode(NodeID(c.Name, f.Name), f)
		}
	}

	var errs []error
	for _, c := range r.Collections() {
		for _, f := range c.ComputedFields() {
			for _, dep := range f.dependencies {
				owner, df, err := c.Lookup(dep)
				if err != nil {
					errs = append(errs, &core.ConfigurationError{
						Collection: c.Name,
						Field:      f.Name,
						Reason:     fmt.Sprintf("dependency %q cannot be resolved", dep),
						Cause:      err,
					})
					continue
				}
				if !df.IsComputed() {
					continue
				}
				if err := r.graph.AddEdge(NodeID(owner.Name, df.Name), NodeID(c.Name, f.Name)); err != nil {
					errs = append(errs, &core.ConfigurationError{Collection: c.Name, Field: f.Name, Reason: "dependency cycle", Cause: err})
				}
			}
			for _, entry := range f.sorting {
				p, err := core.ParsePath(entry.Field)
				if err == nil {
					var sf *Field
					if _, sf, err = c.Lookup(p); err == nil && sf.IsComputed() {
						err = fmt.Errorf("field %q is computed", entry.Field)
					}
				}
				if err != nil {
					errs = append(errs, &core.ConfigurationError{Collection: c.Name, Field: f.Name, Reason: "sort replacement must use physical fields", Cause: err})
				}
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if cycle := r.graph.FindCycle(); cycle != nil {
		collection, field := splitNodeID(cycle.Path[0])
		return &core.ConfigurationError{Collection: collection, Field: field, Reason: "dependency cycle", Cause: cycle}
	}
	return nil
}

// resolveAll memoizes the physical dependencies of every computed field.
func (r *Registry) resolveAll() error {
	for _, c := range r.Collections() {
		for _, f := range c.ComputedFields() {
			if _, err := r.resolve(c, f, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) resolve(c *Collection, f *Field, depth int) ([]string, error) {
	if !f.IsComputed() || f.physical != nil {
		return f.physical, nil
	}
	if depth > MaxDepth {
		return nil, &core.ConfigurationError{
			Collection: c.Name,
			Field:      f.Name,
			Reason:     fmt.Sprintf("dependencies nested deeper than %d levels", MaxDepth),
		}
	}
	out := core.Projection{}
	for _, dep := range f.dependencies {
		owner, df, err := c.Lookup(dep)
		if err != nil {
			return nil, &core.ConfigurationError{Collection: c.Name, Field: f.Name, Reason: "unresolved dependency", Cause: err}
		}
		sub, err := r.resolve(owner, df, depth+1)
		if err != nil {
			return nil, err
		}
		for _, s := range sub {
			out = out.Union(core.PrefixField(dep.Prefix(), s))
		}
	}
	f.physical = out
	return f.physical, nil
}

// assignLevels records the execution level of every computed field.
func (r *Registry) assignLevels() error {
	levels, err := r.graph.ExecutionLevels()
	if err != nil {
		return &core.ConfigurationError{Reason: "dependency cycle", Cause: err}
	}
	for l, ids := range levels {
		for _, id := range ids {
			if n, ok := r.graph.Node(id); ok {
				n.Data.level = l
			}
		}
	}
	return nil
}

func splitNodeID(id string) (string, string) {
	collection, field, _ := strings.Cut(id, ".")
	return collection, field
}
