package core

import (
	"fmt"
	"sort"
)

// ColumnType is the logical type of a field as exposed to clients.
type ColumnType string

// Column type constants.
const (
	TypeString   ColumnType = "String"
	TypeNumber   ColumnType = "Number"
	TypeBoolean  ColumnType = "Boolean"
	TypeDate     ColumnType = "Date"
	TypeDateonly ColumnType = "Dateonly"
	TypeEnum     ColumnType = "Enum"
	TypeJSON     ColumnType = "Json"
	TypeUUID     ColumnType = "Uuid"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeDate, TypeDateonly, TypeEnum, TypeJSON, TypeUUID:
		return true
	}
	return false
}

// RelationKind describes the cardinality of a relation.
type RelationKind string

// Relation kinds.
const (
	// ManyToOne: the foreign key lives on the origin collection (orders.coupon_id).
	ManyToOne RelationKind = "ManyToOne"
	// OneToOne: the foreign key lives on the target collection (subscriptions.user_id).
	OneToOne RelationKind = "OneToOne"
	// OneToMany: reverse of ManyToOne, never joined into a projection.
	OneToMany RelationKind = "OneToMany"
)

// ColumnSchema is a physical column of a collection.
type ColumnSchema struct {
	Name       string     `yaml:"name"`
	Type       ColumnType `yaml:"type"`
	PrimaryKey bool       `yaml:"primary_key,omitempty"`
	Nullable   bool       `yaml:"nullable,omitempty"`
	EnumValues []string   `yaml:"enum_values,omitempty"`
}

// RelationSchema links a collection to another one.
//
// For ManyToOne, ForeignKey is a column of the origin collection and
// TargetKey a column of the target. For OneToOne and OneToMany, ForeignKey
// is a column of the target collection and TargetKey a column of the origin.
type RelationSchema struct {
	Name       string       `yaml:"name"`
	Kind       RelationKind `yaml:"kind"`
	Target     string       `yaml:"target"`
	ForeignKey string       `yaml:"foreign_key"`
	TargetKey  string       `yaml:"target_key"`
}

// Joinable reports whether the relation resolves to at most one record.
func (r RelationSchema) Joinable() bool {
	return r.Kind == ManyToOne || r.Kind == OneToOne
}

// CollectionSchema is the physical description of a collection.
type CollectionSchema struct {
	Name      string           `yaml:"name"`
	Table     string           `yaml:"table,omitempty"`
	Columns   []ColumnSchema   `yaml:"columns"`
	Relations []RelationSchema `yaml:"relations,omitempty"`
}

// TableName returns the storage table backing the collection.
func (c *CollectionSchema) TableName() string {
	if c.Table != "" {
		return c.Table
	}
	return c.Name
}

// Column returns the column with the given name.
func (c *CollectionSchema) Column(name string) (ColumnSchema, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnSchema{}, false
}

// Relation returns the relation with the given name.
func (c *CollectionSchema) Relation(name string) (RelationSchema, bool) {
	for _, rel := range c.Relations {
		if rel.Name == name {
			return rel, true
		}
	}
	return RelationSchema{}, false
}

// PrimaryKey returns the name of the primary key column.
// Collections without an explicit primary key default to "id".
func (c *CollectionSchema) PrimaryKey() string {
	for _, col := range c.Columns {
		if col.PrimaryKey {
			return col.Name
		}
	}
	return "id"
}

// ColumnNames returns the physical column names in declaration order.
func (c *CollectionSchema) ColumnNames() []string {
	names := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		names[i] = col.Name
	}
	return names
}

// Schema is the set of physical collections of a data source.
type Schema struct {
	Collections []*CollectionSchema `yaml:"collections"`
}

// Collection returns the collection schema with the given name.
func (s *Schema) Collection(name string) (*CollectionSchema, bool) {
	if s == nil {
		return nil, false
	}
	for _, c := range s.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Names returns the collection names, sorted.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Collections))
	for _, c := range s.Collections {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that column types are known and relations point to
// existing collections and columns.
func (s *Schema) Validate() error {
	seen := make(map[string]bool, len(s.Collections))
	for _, c := range s.Collections {
		if c.Name == "" {
			return fmt.Errorf("collection without a name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate collection %q", c.Name)
		}
		seen[c.Name] = true
		for _, col := range c.Columns {
			if !col.Type.Valid() {
				return fmt.Errorf("collection %s: column %s has unknown type %q", c.Name, col.Name, col.Type)
			}
		}
	}
	for _, c := range s.Collections {
		for _, rel := range c.Relations {
			target, ok := s.Collection(rel.Target)
			if !ok {
				return fmt.Errorf("collection %s: relation %s targets unknown collection %q", c.Name, rel.Name, rel.Target)
			}
			originCols, targetCols := c, target
			if rel.Kind != ManyToOne {
				originCols, targetCols = target, c
			}
			if _, ok := originCols.Column(rel.ForeignKey); !ok {
				return fmt.Errorf("collection %s: relation %s has unknown foreign key %q", c.Name, rel.Name, rel.ForeignKey)
			}
			if _, ok := targetCols.Column(rel.TargetKey); !ok {
				return fmt.Errorf("collection %s: relation %s has unknown target key %q", c.Name, rel.Name, rel.TargetKey)
			}
		}
	}
	return nil
}
