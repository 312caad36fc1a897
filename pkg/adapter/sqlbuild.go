package adapter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
	"github.com/jeffladiray/forest-vercel-test/pkg/dialect"
)

const rootAlias = "t0"

// statement is a compiled SQL statement with its positional arguments.
type statement struct {
	SQL  string
	Args []any
}

// queryBuilder compiles collection operations into SQL for one root collection.
// Relations referenced by field paths become LEFT JOINs aliased t1, t2, ...
type queryBuilder struct {
	d        *dialect.Dialect
	catalog  *core.Schema
	dbSchema string
	root     *core.CollectionSchema
	alias    bool

	aliases map[string]string
	colls   map[string]*core.CollectionSchema
	joins   []string
	args    []any
}

func newQueryBuilder(d *dialect.Dialect, catalog *core.Schema, dbSchema string, root *core.CollectionSchema, alias bool) *queryBuilder {
	q := &queryBuilder{
		d:        d,
		catalog:  catalog,
		dbSchema: dbSchema,
		root:     root,
		alias:    alias,
		aliases:  map[string]string{"": ""},
		colls:    map[string]*core.CollectionSchema{"": root},
	}
	if alias {
		q.aliases[""] = rootAlias
	}
	return q
}

func (q *queryBuilder) table(c *core.CollectionSchema) string {
	if q.dbSchema != "" {
		return q.d.QuoteIdentifier(q.dbSchema) + "." + q.d.QuoteIdentifier(c.TableName())
	}
	return q.d.QuoteIdentifier(c.TableName())
}

func (q *queryBuilder) arg(v any) string {
	q.args = append(q.args, v)
	return q.d.FormatPlaceholder(len(q.args))
}

func (q *queryBuilder) qualify(alias, column string) string {
	if alias == "" {
		return q.d.QuoteIdentifier(column)
	}
	return alias + "." + q.d.QuoteIdentifier(column)
}

// join returns the alias and collection reached by a relation prefix,
// adding the LEFT JOINs needed on first use.
func (q *queryBuilder) join(prefix string) (string, *core.CollectionSchema, error) {
	if alias, ok := q.aliases[prefix]; ok {
		return alias, q.colls[prefix], nil
	}
	if !q.alias {
		return "", nil, fmt.Errorf("relation %s cannot be traversed in this statement", prefix)
	}
	parentPrefix, relName := "", prefix
	if i := strings.LastIndex(prefix, core.PathSeparator); i >= 0 {
		parentPrefix, relName = prefix[:i], prefix[i+1:]
	}
	parentAlias, parent, err := q.join(parentPrefix)
	if err != nil {
		return "", nil, err
	}
	rel, ok := parent.Relation(relName)
	if !ok {
		return "", nil, &core.UnknownFieldError{Collection: parent.Name, Field: relName}
	}
	if !rel.Joinable() {
		return "", nil, fmt.Errorf("relation %s.%s (%s) cannot be joined", parent.Name, rel.Name, rel.Kind)
	}
	target, ok := q.catalog.Collection(rel.Target)
	if !ok {
		return "", nil, &core.UnknownCollectionError{Name: rel.Target}
	}

	alias := "t" + strconv.Itoa(len(q.aliases))
	var on string
	if rel.Kind == core.ManyToOne {
		on = q.qualify(alias, rel.TargetKey) + " = " + q.qualify(parentAlias, rel.ForeignKey)
	} else {
		on = q.qualify(alias, rel.ForeignKey) + " = " + q.qualify(parentAlias, rel.TargetKey)
	}
	q.joins = append(q.joins, fmt.Sprintf("LEFT JOIN %s AS %s ON %s", q.table(target), alias, on))
	q.aliases[prefix] = alias
	q.colls[prefix] = target
	return alias, target, nil
}

func (q *queryBuilder) column(field string) (string, core.ColumnSchema, error) {
	p, err := core.ParsePath(field)
	if err != nil {
		return "", core.ColumnSchema{}, err
	}
	alias, coll, err := q.join(p.Prefix())
	if err != nil {
		return "", core.ColumnSchema{}, err
	}
	col, ok := coll.Column(p.Field())
	if !ok {
		return "", core.ColumnSchema{}, &core.UnknownFieldError{Collection: coll.Name, Field: p.Field()}
	}
	return q.qualify(alias, col.Name), col, nil
}

func (q *queryBuilder) where(tree core.ConditionTree) (string, error) {
	switch n := tree.(type) {
	case nil:
		return "", nil
	case *core.ConditionLeaf:
		return q.leaf(n)
	case *core.ConditionBranch:
		if len(n.Conditions) == 0 {
			if n.Aggregator == core.Or {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		parts := make([]string, 0, len(n.Conditions))
		for _, c := range n.Conditions {
			s, err := q.where(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		sep := " AND "
		if n.Aggregator == core.Or {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	}
	return "", fmt.Errorf("unsupported condition tree node %T", tree)
}

func (q *queryBuilder) leaf(l *core.ConditionLeaf) (string, error) {
	expr, col, err := q.column(l.Field)
	if err != nil {
		return "", err
	}
	textual := col.Type == core.TypeString || col.Type == core.TypeEnum

	switch l.Operator {
	case core.OpEqual:
		if l.Value == nil {
			return expr + " IS NULL", nil
		}
		return expr + " = " + q.arg(l.Value), nil
	case core.OpNotEqual:
		if l.Value == nil {
			return expr + " IS NOT NULL", nil
		}
		return "(" + expr + " <> " + q.arg(l.Value) + " OR " + expr + " IS NULL)", nil
	case core.OpLessThan:
		return expr + " < " + q.arg(l.Value), nil
	case core.OpGreaterThan:
		return expr + " > " + q.arg(l.Value), nil
	case core.OpIn, core.OpNotIn:
		values, _ := core.ValuesOf(l.Value)
		if len(values) == 0 {
			if l.Operator == core.OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		phs := make([]string, len(values))
		for i, v := range values {
			phs[i] = q.arg(v)
		}
		list := "(" + strings.Join(phs, ", ") + ")"
		if l.Operator == core.OpIn {
			return expr + " IN " + list, nil
		}
		return "(" + expr + " NOT IN " + list + " OR " + expr + " IS NULL)", nil
	case core.OpContains:
		return expr + " LIKE " + q.arg("%"+escapeLike(l.Value)+"%") + likeEscape, nil
	case core.OpNotContains:
		return "(" + expr + " NOT LIKE " + q.arg("%"+escapeLike(l.Value)+"%") + likeEscape + " OR " + expr + " IS NULL)", nil
	case core.OpIContains:
		return q.d.InsensitiveLike(expr, q.arg("%"+escapeLike(l.Value)+"%")) + likeEscape, nil
	case core.OpStartsWith:
		return expr + " LIKE " + q.arg(escapeLike(l.Value)+"%") + likeEscape, nil
	case core.OpEndsWith:
		return expr + " LIKE " + q.arg("%"+escapeLike(l.Value)) + likeEscape, nil
	case core.OpPresent:
		if textual {
			return "(" + expr + " IS NOT NULL AND " + expr + " <> '')", nil
		}
		return expr + " IS NOT NULL", nil
	case core.OpBlank:
		if textual {
			return "(" + expr + " IS NULL OR " + expr + " = '')", nil
		}
		return expr + " IS NULL", nil
	}
	return "", fmt.Errorf("operator %s is not supported by the %s dialect", l.Operator, q.d.Name)
}

// likeEscape declares the escape character used by escapeLike.
const likeEscape = ` ESCAPE '\'`

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike quotes the LIKE wildcards of a literal operand.
func escapeLike(v any) string {
	return likeEscaper.Replace(fmt.Sprint(v))
}

// selectPlan is a compiled read with the field path of every selected column.
type selectPlan struct {
	statement
	fields    []core.FieldPath
	types     []core.ColumnType
	relations []string // relation prefixes, shortest first
	keyIndex  map[string]int
}

func (q *queryBuilder) buildSelect(filter core.PaginatedFilter, projection core.Projection) (*selectPlan, error) {
	plan := &selectPlan{keyIndex: map[string]int{}}
	var cols []string

	paths, err := projection.Paths()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		expr, col, err := q.column(p.String())
		if err != nil {
			return nil, err
		}
		cols = append(cols, expr)
		plan.fields = append(plan.fields, p)
		plan.types = append(plan.types, col.Type)
	}

	// Select the key of every joined relation to tell a missing record from NULL columns.
	prefixes := make([]string, 0, len(q.aliases))
	for prefix := range q.aliases {
		if prefix != "" {
			prefixes = append(prefixes, prefix)
		}
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) < len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	for _, prefix := range prefixes {
		pk := q.colls[prefix].PrimaryKey()
		plan.keyIndex[prefix] = len(cols)
		cols = append(cols, q.qualify(q.aliases[prefix], pk))
		plan.fields = append(plan.fields, core.MustParsePath(core.PrefixField(prefix, pk)))
		keyCol, _ := q.colls[prefix].Column(pk)
		plan.types = append(plan.types, keyCol.Type)
	}
	plan.relations = prefixes

	where, err := q.where(filter.ConditionTree)
	if err != nil {
		return nil, err
	}
	var orderBy []string
	for _, s := range filter.Sort {
		expr, _, err := q.column(s.Field)
		if err != nil {
			return nil, err
		}
		dir := "ASC"
		if !s.Ascending {
			dir = "DESC"
		}
		orderBy = append(orderBy, expr+" "+dir)
	}

	// Joins added by the filter or sort are not selected; their keys are irrelevant.
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(cols) == 0 {
		sb.WriteString("1")
	} else {
		sb.WriteString(strings.Join(cols, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.table(q.root))
	sb.WriteString(" AS " + rootAlias)
	for _, j := range q.joins {
		sb.WriteString(" " + j)
	}
	if where != "" {
		sb.WriteString(" WHERE " + where)
	}
	if len(orderBy) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(orderBy, ", "))
	}
	if page := filter.Page; page != nil {
		switch {
		case page.Limit > 0:
			sb.WriteString(" LIMIT " + strconv.Itoa(page.Limit))
		case page.Skip > 0 && q.d.UnboundedLimit != "":
			sb.WriteString(" LIMIT " + q.d.UnboundedLimit)
		}
		if page.Skip > 0 {
			sb.WriteString(" OFFSET " + strconv.Itoa(page.Skip))
		}
	}
	plan.SQL = sb.String()
	plan.Args = q.args
	return plan, nil
}

func (q *queryBuilder) buildUpdate(tree core.ConditionTree, patch core.Record) (*statement, error) {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys))
	for _, k := range keys {
		col, ok := q.root.Column(k)
		if !ok {
			return nil, &core.UnknownFieldError{Collection: q.root.Name, Field: k}
		}
		sets = append(sets, q.d.QuoteIdentifier(col.Name)+" = "+q.arg(patch[k]))
	}

	stmt := "UPDATE " + q.table(q.root) + " SET " + strings.Join(sets, ", ")
	if tree == nil {
		return &statement{SQL: stmt, Args: q.args}, nil
	}

	local := true
	for _, l := range core.Leaves(tree) {
		if strings.ContainsAny(l.Field, ":.") {
			local = false
			break
		}
	}
	if local {
		where, err := q.where(tree)
		if err != nil {
			return nil, err
		}
		return &statement{SQL: stmt + " WHERE " + where, Args: q.args}, nil
	}

	// Conditions on relations select the matching keys through a joined subquery.
	sub := newQueryBuilder(q.d, q.catalog, q.dbSchema, q.root, true)
	sub.args = q.args
	where, err := sub.where(tree)
	if err != nil {
		return nil, err
	}
	pk := q.d.QuoteIdentifier(q.root.PrimaryKey())
	var sb strings.Builder
	sb.WriteString(stmt)
	sb.WriteString(" WHERE " + pk + " IN (SELECT " + rootAlias + "." + pk)
	sb.WriteString(" FROM " + q.table(q.root) + " AS " + rootAlias)
	for _, j := range sub.joins {
		sb.WriteString(" " + j)
	}
	sb.WriteString(" WHERE " + where + ")")
	return &statement{SQL: sb.String(), Args: sub.args}, nil
}

func (q *queryBuilder) buildInsert(record core.Record) (*statement, error) {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, 0, len(keys))
	phs := make([]string, 0, len(keys))
	for _, k := range keys {
		col, ok := q.root.Column(k)
		if !ok {
			return nil, &core.UnknownFieldError{Collection: q.root.Name, Field: k}
		}
		cols = append(cols, q.d.QuoteIdentifier(col.Name))
		phs = append(phs, q.arg(record[k]))
	}

	returning := make([]string, len(q.root.Columns))
	for i, c := range q.root.Columns {
		returning[i] = q.d.QuoteIdentifier(c.Name)
	}

	stmt := "INSERT INTO " + q.table(q.root)
	if len(cols) == 0 {
		stmt += " DEFAULT VALUES"
	} else {
		stmt += " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(phs, ", ") + ")"
	}
	stmt += " RETURNING " + strings.Join(returning, ", ")
	return &statement{SQL: stmt, Args: q.args}, nil
}

func (q *queryBuilder) buildAggregate(groupField string, values []any) (*statement, error) {
	col, ok := q.root.Column(groupField)
	if !ok {
		return nil, &core.UnknownFieldError{Collection: q.root.Name, Field: groupField}
	}
	g := q.d.QuoteIdentifier(col.Name)
	phs := make([]string, len(values))
	for i, v := range values {
		phs[i] = q.arg(v)
	}
	stmt := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s WHERE %s IN (%s) GROUP BY %s",
		g, q.table(q.root), g, strings.Join(phs, ", "), g)
	return &statement{SQL: stmt, Args: q.args}, nil
}
