// Package registry holds the customized collections of the agent: the
// physical fields taken from the schema, the computed fields registered on
// top of them and the actions. A Registry is assembled by a Builder and is
// read-only afterwards, so it can be shared by concurrent requests without
// locking.
package registry

import (
	"fmt"
	"sort"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/dag"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// MaxDepth bounds dependency resolution and predicate rewriting.
const MaxDepth = 32

// Registry is the immutable set of customized collections.
type Registry struct {
	schema      *core.Schema
	collections map[string]*Collection
	order       []string
	graph       *dag.Graph[*Field]
}

// Collection is a customized collection.
type Collection struct {
	Name   string
	Schema *core.CollectionSchema

	registry    *Registry
	fields      map[string]*Field
	fieldOrder  []string
	actions     map[string]*action.Definition
	actionOrder []string
}

// Schema returns the physical schema the registry was built from.
func (r *Registry) Schema() *core.Schema { return r.schema }

// Collection returns a collection by name.
func (r *Registry) Collection(name string) (*Collection, bool) {
	c, ok := r.collections[name]
	return c, ok
}

// MustCollection returns a collection or an UnknownCollectionError.
func (r *Registry) MustCollection(name string) (*Collection, error) {
	c, ok := r.collections[name]
	if !ok {
		return nil, &core.UnknownCollectionError{Name: name, Available: r.order}
	}
	return c, nil
}

// Collections returns the collections in schema order.
func (r *Registry) Collections() []*Collection {
	out := make([]*Collection, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.collections[name])
	}
	return out
}

// Graph returns the dependency graph of computed fields. Node IDs are
// "collection.field" and edges point from a dependency to its dependents.
func (r *Registry) Graph() *dag.Graph[*Field] { return r.graph }

// Resolve returns the physical field paths needed to evaluate a field.
func (r *Registry) Resolve(collection, field string) ([]string, error) {
	c, err := r.MustCollection(collection)
	if err != nil {
		return nil, err
	}
	f, ok := c.Field(field)
	if !ok {
		return nil, &core.UnknownFieldError{Collection: collection, Field: field}
	}
	return f.PhysicalDependencies(), nil
}

// ComputedUpstream returns the node IDs of every computed field a field
// depends on, directly or through other computed fields.
func (r *Registry) ComputedUpstream(collection, field string) []string {
	return r.graph.Upstream(NodeID(collection, field))
}

// Dependents returns the node IDs of the computed fields that read a
// computed field directly.
func (r *Registry) Dependents(collection, field string) []string {
	out := append([]string(nil), r.graph.Children(NodeID(collection, field))...)
	sort.Strings(out)
	return out
}

// NodeID returns the dependency graph identifier of a field.
func NodeID(collection, field string) string {
	return collection + "." + field
}

// Field returns a field by name.
func (c *Collection) Field(name string) (*Field, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// Fields returns physical fields in column order followed by computed fields
// in registration order.
func (c *Collection) Fields() []*Field {
	out := make([]*Field, 0, len(c.fieldOrder))
	for _, name := range c.fieldOrder {
		out = append(out, c.fields[name])
	}
	return out
}

// ComputedFields returns the computed fields in registration order.
func (c *Collection) ComputedFields() []*Field {
	var out []*Field
	for _, name := range c.fieldOrder {
		if f := c.fields[name]; f.IsComputed() {
			out = append(out, f)
		}
	}
	return out
}

// PrimaryKey returns the primary key column.
func (c *Collection) PrimaryKey() string { return c.Schema.PrimaryKey() }

// Action returns an action by name.
func (c *Collection) Action(name string) (*action.Definition, bool) {
	a, ok := c.actions[name]
	return a, ok
}

// ActionNames returns the action names in registration order.
func (c *Collection) ActionNames() []string {
	return append([]string(nil), c.actionOrder...)
}

// Target returns the collection reached through a relation.
func (c *Collection) Target(relation string) (*Collection, core.RelationSchema, error) {
	rel, ok := c.Schema.Relation(relation)
	if !ok {
		return nil, core.RelationSchema{}, &core.UnknownFieldError{Collection: c.Name, Field: relation}
	}
	target, err := c.registry.MustCollection(rel.Target)
	if err != nil {
		return nil, rel, err
	}
	return target, rel, nil
}

// Lookup walks the relations of a path and returns the collection owning the
// final field together with that field.
func (c *Collection) Lookup(p core.FieldPath) (*Collection, *Field, error) {
	owner := c
	for _, relName := range p.Relations() {
		target, rel, err := owner.Target(relName)
		if err != nil {
			return nil, nil, err
		}
		if !rel.Joinable() {
			return nil, nil, fmt.Errorf("relation %s.%s (%s) cannot be traversed", owner.Name, rel.Name, rel.Kind)
		}
		owner = target
	}
	f, ok := owner.Field(p.Field())
	if !ok {
		return nil, nil, &core.UnknownFieldError{Collection: owner.Name, Field: p.Field()}
	}
	return owner, f, nil
}

func sortOperators(ops []core.Operator) {
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
}
