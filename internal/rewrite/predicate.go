package rewrite

import (
	"fmt"

	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Predicate rewrites a condition tree so that no leaf references a computed
// field. Replacement trees are rewritten again, up to registry.MaxDepth
// levels. Branches keep their aggregator and child order.
func (rw *Rewriter) Predicate(collection string, tree core.ConditionTree) (core.ConditionTree, error) {
	root, err := rw.registry.MustCollection(collection)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateTree(tree); err != nil {
		return nil, err
	}
	return rw.predicate(root, tree, 0)
}

func (rw *Rewriter) predicate(c *registry.Collection, tree core.ConditionTree, depth int) (core.ConditionTree, error) {
	switch t := tree.(type) {
	case nil:
		return nil, nil
	case *core.ConditionBranch:
		if t == nil {
			return nil, nil
		}
		children := make([]core.ConditionTree, 0, len(t.Conditions))
		for _, child := range t.Conditions {
			out, err := rw.predicate(c, child, depth)
			if err != nil {
				return nil, err
			}
			if out == nil {
				// A nil replacement matches everything.
				out = core.AndOf()
			}
			children = append(children, out)
		}
		return &core.ConditionBranch{Aggregator: t.Aggregator, Conditions: children}, nil
	case *core.ConditionLeaf:
		if t == nil {
			return nil, nil
		}
		return rw.leaf(c, t, depth)
	}
	return nil, fmt.Errorf("unsupported condition tree node %T", tree)
}

func (rw *Rewriter) leaf(c *registry.Collection, leaf *core.ConditionLeaf, depth int) (core.ConditionTree, error) {
	p, err := core.ParsePath(leaf.Field)
	if err != nil {
		return nil, err
	}
	owner, f, err := c.Lookup(p)
	if err != nil {
		return nil, err
	}
	if !f.IsComputed() {
		return &core.ConditionLeaf{Field: p.String(), Operator: leaf.Operator, Value: leaf.Value}, nil
	}

	replace, ok := f.Operator(leaf.Operator)
	if !ok {
		return nil, &core.UnsupportedOperatorError{Collection: owner.Name, Field: f.Name, Operator: leaf.Operator}
	}
	if depth >= registry.MaxDepth {
		return nil, &core.ConfigurationError{
			Collection: owner.Name,
			Field:      f.Name,
			Reason:     fmt.Sprintf("operator replacements nested deeper than %d levels", registry.MaxDepth),
		}
	}
	replacement, err := replace(leaf.Value, rw.capability(owner.Name))
	if err != nil {
		return nil, fmt.Errorf("replace %s on %s.%s: %w", leaf.Operator, owner.Name, f.Name, err)
	}
	if err := core.ValidateTree(replacement); err != nil {
		return nil, fmt.Errorf("replace %s on %s.%s: %w", leaf.Operator, owner.Name, f.Name, err)
	}
	// The replacement is expressed on the owner collection.
	rewritten, err := rw.predicate(owner, replacement, depth+1)
	if err != nil || rewritten == nil {
		return rewritten, err
	}
	return core.PrefixTree(rewritten, p.Prefix()), nil
}
