package rewrite

import (
	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Step is one computed field to evaluate for a request.
type Step struct {
	// Path is where the value is stored in the fetched records ("user:fullname").
	Path string
	// Prefix is the relation path from the root collection to the owner ("user").
	Prefix string
	// Collection owns the field.
	Collection *registry.Collection
	Field      *registry.Field
	// Level is the field's level in the registry dependency graph; a field
	// is always on a higher level than the computed fields it depends on.
	Level int
	// Dependencies is the slice of the owner record the computation receives.
	Dependencies []core.FieldPath
}

// Plan tells storage what to fetch and the computer what to derive.
type Plan struct {
	Collection string
	// Requested are the canonical paths returned to the caller.
	Requested core.Projection
	// Physical is the projection sent to storage.
	Physical core.Projection
	// Steps are ordered so that dependencies come first.
	Steps []Step
}

// Levels groups steps by level. Every dependency of a step is in the plan,
// so the levels of a plan are contiguous from 0.
func (p *Plan) Levels() [][]Step {
	var levels [][]Step
	for _, s := range p.Steps {
		for len(levels) <= s.Level {
			levels = append(levels, nil)
		}
		levels[s.Level] = append(levels[s.Level], s)
	}
	return levels
}

// HasComputed reports whether any computed field is involved.
func (p *Plan) HasComputed() bool { return len(p.Steps) > 0 }

// Expand plans the fetch of the requested fields of a collection. An empty
// request selects every field of the collection, computed ones included.
func (rw *Rewriter) Expand(collection string, fields []string) (*Plan, error) {
	root, err := rw.registry.MustCollection(collection)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		for _, f := range root.Fields() {
			fields = append(fields, f.Name)
		}
	}

	pb := &planBuilder{plan: &Plan{Collection: collection}, seen: map[string]bool{}}
	for _, field := range fields {
		p, err := core.ParsePath(field)
		if err != nil {
			return nil, err
		}
		owner, f, err := root.Lookup(p)
		if err != nil {
			return nil, err
		}
		canonical := p.String()
		pb.plan.Requested = pb.plan.Requested.Union(canonical)
		if !f.IsComputed() {
			pb.plan.Physical = pb.plan.Physical.Union(canonical)
			continue
		}
		for _, dep := range f.PhysicalDependencies() {
			pb.plan.Physical = pb.plan.Physical.Union(core.PrefixField(p.Prefix(), dep))
		}
		if err := pb.add(p.Prefix(), owner, f); err != nil {
			return nil, err
		}
	}
	if len(pb.plan.Physical) == 0 {
		pb.plan.Physical = core.NewProjection(root.PrimaryKey())
	}
	return pb.plan, nil
}

type planBuilder struct {
	plan *Plan
	seen map[string]bool
}

// add appends the steps of f and of the computed fields it depends on,
// dependencies first.
func (pb *planBuilder) add(prefix string, owner *registry.Collection, f *registry.Field) error {
	path := core.PrefixField(prefix, f.Name)
	if pb.seen[path] {
		return nil
	}
	pb.seen[path] = true
	for _, dep := range f.Dependencies() {
		depOwner, df, err := owner.Lookup(dep)
		if err != nil {
			return err
		}
		if !df.IsComputed() {
			continue
		}
		if err := pb.add(joinPrefix(prefix, dep.Prefix()), depOwner, df); err != nil {
			return err
		}
	}
	pb.plan.Steps = append(pb.plan.Steps, Step{
		Path:         path,
		Prefix:       prefix,
		Collection:   owner,
		Field:        f,
		Level:        f.Level(),
		Dependencies: f.Dependencies(),
	})
	return nil
}

func joinPrefix(outer, inner string) string {
	if inner == "" {
		return outer
	}
	return core.PrefixField(outer, inner)
}
