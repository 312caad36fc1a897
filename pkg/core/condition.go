package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Operator is a filter operator applied to a field.
type Operator string

// Supported operators.
const (
	OpEqual       Operator = "Equal"
	OpNotEqual    Operator = "NotEqual"
	OpLessThan    Operator = "LessThan"
	OpGreaterThan Operator = "GreaterThan"
	OpIn          Operator = "In"
	OpNotIn       Operator = "NotIn"
	OpContains    Operator = "Contains"
	OpNotContains Operator = "NotContains"
	OpIContains   Operator = "IContains"
	OpStartsWith  Operator = "StartsWith"
	OpEndsWith    Operator = "EndsWith"
	OpPresent     Operator = "Present"
	OpBlank       Operator = "Blank"
)

var knownOperators = map[Operator]bool{
	OpEqual: true, OpNotEqual: true, OpLessThan: true, OpGreaterThan: true,
	OpIn: true, OpNotIn: true, OpContains: true, OpNotContains: true,
	OpIContains: true, OpStartsWith: true, OpEndsWith: true,
	OpPresent: true, OpBlank: true,
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool { return knownOperators[op] }

// Aggregator combines the children of a ConditionBranch.
type Aggregator string

// Aggregators.
const (
	And Aggregator = "And"
	Or  Aggregator = "Or"
)

// ConditionTree is a recursive boolean filter over fields.
// It is either a *ConditionLeaf or a *ConditionBranch. A nil tree matches
// every record.
type ConditionTree interface {
	conditionTree()
}

// ConditionLeaf compares one field against a value.
type ConditionLeaf struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// ConditionBranch combines child trees with an aggregator, in order.
type ConditionBranch struct {
	Aggregator Aggregator      `json:"aggregator"`
	Conditions []ConditionTree `json:"conditions"`
}

func (*ConditionLeaf) conditionTree()   {}
func (*ConditionBranch) conditionTree() {}

// Leaf builds a condition leaf.
func Leaf(field string, op Operator, value any) *ConditionLeaf {
	return &ConditionLeaf{Field: field, Operator: op, Value: value}
}

// AndOf builds an And branch over the given conditions.
func AndOf(conds ...ConditionTree) *ConditionBranch {
	return &ConditionBranch{Aggregator: And, Conditions: conds}
}

// OrOf builds an Or branch over the given conditions.
func OrOf(conds ...ConditionTree) *ConditionBranch {
	return &ConditionBranch{Aggregator: Or, Conditions: conds}
}

// Intersect combines trees with And, skipping nil trees.
func Intersect(trees ...ConditionTree) ConditionTree {
	var kept []ConditionTree
	for _, t := range trees {
		if t != nil && !isNilTree(t) {
			kept = append(kept, t)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return AndOf(kept...)
}

func isNilTree(t ConditionTree) bool {
	switch n := t.(type) {
	case *ConditionLeaf:
		return n == nil
	case *ConditionBranch:
		return n == nil
	}
	return t == nil
}

// Leaves returns every leaf of the tree in depth-first order.
func Leaves(tree ConditionTree) []*ConditionLeaf {
	var out []*ConditionLeaf
	var walk func(ConditionTree)
	walk = func(t ConditionTree) {
		switch n := t.(type) {
		case *ConditionLeaf:
			if n != nil {
				out = append(out, n)
			}
		case *ConditionBranch:
			if n != nil {
				for _, c := range n.Conditions {
					walk(c)
				}
			}
		}
	}
	walk(tree)
	return out
}

// PrefixTree returns a copy of tree with every leaf field nested below prefix.
func PrefixTree(tree ConditionTree, prefix string) ConditionTree {
	switch n := tree.(type) {
	case *ConditionLeaf:
		return &ConditionLeaf{Field: PrefixField(prefix, n.Field), Operator: n.Operator, Value: n.Value}
	case *ConditionBranch:
		children := make([]ConditionTree, len(n.Conditions))
		for i, c := range n.Conditions {
			children[i] = PrefixTree(c, prefix)
		}
		return &ConditionBranch{Aggregator: n.Aggregator, Conditions: children}
	}
	return tree
}

// ValidateTree checks operators, aggregators and field paths of the tree.
func ValidateTree(tree ConditionTree) error {
	switch n := tree.(type) {
	case nil:
		return nil
	case *ConditionLeaf:
		if !n.Operator.Valid() {
			return fmt.Errorf("unknown operator %q on field %s", n.Operator, n.Field)
		}
		if _, err := ParsePath(n.Field); err != nil {
			return err
		}
		if n.Operator == OpIn || n.Operator == OpNotIn {
			if _, ok := ValuesOf(n.Value); !ok && n.Value != nil {
				return fmt.Errorf("operator %s on field %s expects a list", n.Operator, n.Field)
			}
		}
	case *ConditionBranch:
		if n.Aggregator != And && n.Aggregator != Or {
			return fmt.Errorf("unknown aggregator %q", n.Aggregator)
		}
		for _, c := range n.Conditions {
			if err := ValidateTree(c); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported condition tree node %T", tree)
	}
	return nil
}

// ValuesOf returns the elements of a slice or array value.
func ValuesOf(v any) ([]any, bool) {
	if vs, ok := v.([]any); ok {
		return vs, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if _, isBytes := v.([]byte); isBytes {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Match evaluates tree against a record holding raw values.
func Match(tree ConditionTree, r Record) (bool, error) {
	switch n := tree.(type) {
	case nil:
		return true, nil
	case *ConditionLeaf:
		if n == nil {
			return true, nil
		}
		return matchLeaf(n, r)
	case *ConditionBranch:
		if n == nil {
			return true, nil
		}
		for _, c := range n.Conditions {
			ok, err := Match(c, r)
			if err != nil {
				return false, err
			}
			if n.Aggregator == Or && ok {
				return true, nil
			}
			if n.Aggregator == And && !ok {
				return false, nil
			}
		}
		// An empty And matches everything, an empty Or nothing.
		return n.Aggregator == And, nil
	}
	return false, fmt.Errorf("unsupported condition tree node %T", tree)
}

func matchLeaf(l *ConditionLeaf, r Record) (bool, error) {
	p, err := ParsePath(l.Field)
	if err != nil {
		return false, err
	}
	v, _ := r.Get(p)
	switch l.Operator {
	case OpEqual:
		return v != nil && Equal(v, l.Value), nil
	case OpNotEqual:
		return v == nil || !Equal(v, l.Value), nil
	case OpLessThan:
		return v != nil && l.Value != nil && Compare(v, l.Value) < 0, nil
	case OpGreaterThan:
		return v != nil && l.Value != nil && Compare(v, l.Value) > 0, nil
	case OpIn, OpNotIn:
		vals, _ := ValuesOf(l.Value)
		found := false
		for _, candidate := range vals {
			if v != nil && Equal(v, candidate) {
				found = true
				break
			}
		}
		if l.Operator == OpIn {
			return found, nil
		}
		return !found, nil
	case OpContains, OpNotContains, OpIContains, OpStartsWith, OpEndsWith:
		if v == nil {
			return l.Operator == OpNotContains, nil
		}
		s, needle := stringOf(v), stringOf(l.Value)
		switch l.Operator {
		case OpContains:
			return strings.Contains(s, needle), nil
		case OpNotContains:
			return !strings.Contains(s, needle), nil
		case OpIContains:
			return strings.Contains(strings.ToLower(s), strings.ToLower(needle)), nil
		case OpStartsWith:
			return strings.HasPrefix(s, needle), nil
		}
		return strings.HasSuffix(s, needle), nil
	case OpPresent:
		return v != nil && stringOf(v) != "", nil
	case OpBlank:
		return v == nil || stringOf(v) == "", nil
	}
	return false, fmt.Errorf("unknown operator %q on field %s", l.Operator, l.Field)
}

// ParseConditionTree builds a tree from its decoded JSON form: either
// {"field", "operator", "value"} or {"aggregator", "conditions"}.
func ParseConditionTree(v any) (ConditionTree, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("condition tree must be an object, got %T", v)
	}
	if agg, ok := m["aggregator"]; ok {
		name, _ := agg.(string)
		branch := &ConditionBranch{Aggregator: normalizeAggregator(name)}
		children, _ := m["conditions"].([]any)
		for _, c := range children {
			child, err := ParseConditionTree(c)
			if err != nil {
				return nil, err
			}
			branch.Conditions = append(branch.Conditions, child)
		}
		return branch, ValidateTree(branch)
	}
	field, _ := m["field"].(string)
	op, _ := m["operator"].(string)
	leaf := &ConditionLeaf{Field: field, Operator: Operator(op), Value: m["value"]}
	return leaf, ValidateTree(leaf)
}

// UnmarshalConditionTree decodes a JSON condition tree.
func UnmarshalConditionTree(data []byte) (ConditionTree, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid condition tree: %w", err)
	}
	return ParseConditionTree(raw)
}

func normalizeAggregator(s string) Aggregator {
	switch strings.ToLower(s) {
	case "and":
		return And
	case "or":
		return Or
	}
	return Aggregator(s)
}
