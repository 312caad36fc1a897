// Package core defines the shared language of the agent.
//
// This package contains:
//   - Schema entities (CollectionSchema, ColumnSchema, RelationSchema)
//   - Typed field paths and records
//   - Query shapes (ConditionTree, Sort, PaginatedFilter, Projection)
//   - Service interfaces (DataSource, CollectionAccess)
//   - The error taxonomy shared by every layer
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
