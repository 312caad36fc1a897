package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
	"github.com/jeffladiray/forest-vercel-test/pkg/dialect"
)

// BaseSQLAdapter provides the database/sql implementation of Adapter.
// Embed this struct in concrete adapter implementations; they only need to
// open the connection in Connect.
type BaseSQLAdapter struct {
	DB         *sql.DB
	Cfg        core.AdapterConfig
	Logger     *slog.Logger
	SQLDialect *dialect.Dialect
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// SQLDB returns the underlying connection pool.
func (b *BaseSQLAdapter) SQLDB() *sql.DB {
	return b.DB
}

// Dialect returns the SQL dialect of the adapter.
func (b *BaseSQLAdapter) Dialect() *dialect.Dialect {
	return b.SQLDialect
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

func (b *BaseSQLAdapter) builder(collection string, alias bool) (*queryBuilder, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	if b.SQLDialect == nil {
		return nil, fmt.Errorf("adapter has no SQL dialect")
	}
	c, ok := b.Cfg.Catalog.Collection(collection)
	if !ok {
		var names []string
		if b.Cfg.Catalog != nil {
			names = b.Cfg.Catalog.Names()
		}
		return nil, &core.UnknownCollectionError{Name: collection, Available: names}
	}
	return newQueryBuilder(b.SQLDialect, b.Cfg.Catalog, b.Cfg.Schema, c, alias), nil
}

// Read compiles the filter and projection into a joined SELECT and scans the
// rows back into nested records.
func (b *BaseSQLAdapter) Read(ctx context.Context, collection string, filter core.PaginatedFilter, projection core.Projection) ([]core.Record, error) {
	q, err := b.builder(collection, true)
	if err != nil {
		return nil, err
	}
	plan, err := q.buildSelect(filter, projection)
	if err != nil {
		return nil, err
	}
	requested, err := projection.Paths()
	if err != nil {
		return nil, err
	}

	b.logger().Debug("executing read", slog.String("collection", collection), slog.String("sql", plan.SQL))
	rows, err := b.DB.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []core.Record
	for rows.Next() {
		values := make([]any, len(plan.fields))
		dest := make([]any, len(plan.fields))
		for i := range values {
			dest[i] = &values[i]
		}
		if len(dest) == 0 {
			var one any
			dest = []any{&one}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rec := core.Record{}
		for i, p := range plan.fields {
			rec.Set(p, normalizeValue(values[i], plan.types[i]))
		}
		for _, prefix := range plan.relations {
			if values[plan.keyIndex[prefix]] == nil {
				rec.Set(core.MustParsePath(prefix), core.Record(nil))
			}
		}
		records = append(records, rec.Project(requested))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// Create inserts every record with INSERT ... RETURNING and returns the stored rows.
func (b *BaseSQLAdapter) Create(ctx context.Context, collection string, records []core.Record) ([]core.Record, error) {
	out := make([]core.Record, 0, len(records))
	for _, rec := range records {
		q, err := b.builder(collection, false)
		if err != nil {
			return nil, err
		}
		stmt, err := q.buildInsert(rec)
		if err != nil {
			return nil, err
		}

		b.logger().Debug("executing create", slog.String("collection", collection), slog.String("sql", stmt.SQL))
		values := make([]any, len(q.root.Columns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := b.DB.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to insert into %s: %w", collection, err)
		}
		created := make(core.Record, len(values))
		for i, c := range q.root.Columns {
			created[c.Name] = normalizeValue(values[i], c.Type)
		}
		out = append(out, created)
	}
	return out, nil
}

// Update compiles the patch into a single UPDATE statement.
// An empty patch is a no-op.
func (b *BaseSQLAdapter) Update(ctx context.Context, collection string, tree core.ConditionTree, patch core.Record) error {
	if len(patch) == 0 {
		return nil
	}
	q, err := b.builder(collection, false)
	if err != nil {
		return err
	}
	stmt, err := q.buildUpdate(tree, patch)
	if err != nil {
		return err
	}

	b.logger().Debug("executing update", slog.String("collection", collection), slog.String("sql", stmt.SQL))
	if _, err := b.DB.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", collection, err)
	}
	return nil
}

// RawAggregate runs one grouped COUNT restricted to values.
// No values means no groups, and no query is issued.
func (b *BaseSQLAdapter) RawAggregate(ctx context.Context, collection, groupField string, values []any) ([]core.AggregateRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	q, err := b.builder(collection, false)
	if err != nil {
		return nil, err
	}
	stmt, err := q.buildAggregate(groupField, values)
	if err != nil {
		return nil, err
	}

	b.logger().Debug("executing aggregate", slog.String("collection", collection), slog.String("sql", stmt.SQL))
	rows, err := b.DB.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.AggregateRow
	for rows.Next() {
		var group, count any
		if err := rows.Scan(&group, &count); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		out = append(out, core.AggregateRow{Group: normalizeValue(group, ""), Count: normalizeValue(count, "")})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregate rows: %w", err)
	}
	return out, nil
}

// normalizeValue maps driver specific representations onto the values
// records carry. Text columns scanned as bytes become strings and booleans
// stored as integers become bools.
func normalizeValue(v any, t core.ColumnType) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int64:
		if t == core.TypeBoolean {
			return x != 0
		}
	}
	return v
}
