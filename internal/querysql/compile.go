package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/entgraph/internal/queryir"
)

// recordColumns must match the scan order of store.QueryRecords.
const recordColumns = "id, type, data, created_at, updated_at"

// insertionOrder is the tiebreaker every compiled query ends with, so that
// equal sort keys still come back in a stable order.
const insertionOrder = "rowid ASC"

// SQLCompiler compiles queryir.Select to parameterized SQL for SQLite.
//
// Document fields are addressed as json_extract(data, ?) with the "$.path"
// bound as a parameter. Values, paths, type and pagination are all
// parameters; the only text that varies between queries is operators and
// placeholders.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a Select to (sql, params, error).
//
// Every field in the query is re-validated first; a Select that references
// an unsafe field name is refused rather than compiled.
func (c *SQLCompiler) Compile(q queryir.Select) (string, []any, error) {
	if q.Type == "" {
		return "", nil, queryir.ErrMissingType
	}
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	params := []any{q.Type}

	sb.WriteString("SELECT " + recordColumns + " FROM records WHERE type = ?")

	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		if filterSQL != "" {
			sb.WriteString(" AND " + filterSQL)
			params = append(params, filterParams...)
		}
	}

	sb.WriteString(" ORDER BY ")
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		sb.WriteString("json_extract(data, ?) " + dir + ", ")
		params = append(params, jsonPath(q.OrderBy))
	}
	sb.WriteString(insertionOrder)

	// SQLite rejects OFFSET without LIMIT; -1 means no limit.
	if q.Limit != nil || q.Offset != nil {
		limit := -1
		if q.Limit != nil {
			limit = *q.Limit
		}
		sb.WriteString(" LIMIT ?")
		params = append(params, limit)
		if q.Offset != nil {
			sb.WriteString(" OFFSET ?")
			params = append(params, *q.Offset)
		}
	}

	return sb.String(), params, nil
}

// CompileFind compiles q for a single-row lookup: the same query with the
// limit forced to 1.
func (c *SQLCompiler) CompileFind(q queryir.Select) (string, []any, error) {
	one := 1
	q.Limit = &one
	return c.Compile(q)
}

// compilePredicate returns the SQL fragment for p, or "" when p is always true.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil, nil
	case queryir.Compare:
		return c.compileCompare(pred)
	case *queryir.Compare:
		return c.compileCompare(*pred)
	case queryir.IsNull:
		return c.compileIsNull(pred), []any{jsonPath(pred.Field)}, nil
	case *queryir.IsNull:
		return c.compileIsNull(*pred), []any{jsonPath(pred.Field)}, nil
	case queryir.In:
		return c.compileIn(pred)
	case *queryir.In:
		return c.compileIn(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileCompare(cmp queryir.Compare) (string, []any, error) {
	switch cmp.Op {
	case queryir.OpEq, queryir.OpNe, queryir.OpGt, queryir.OpGte, queryir.OpLt, queryir.OpLte:
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", cmp.Op)
	}
	if cmp.Value == nil {
		return "", nil, fmt.Errorf("nil value for %s %s", cmp.Field, cmp.Op)
	}
	return fmt.Sprintf("json_extract(data, ?) %s ?", cmp.Op), []any{jsonPath(cmp.Field), cmp.Value}, nil
}

func (c *SQLCompiler) compileIsNull(n queryir.IsNull) string {
	if n.Not {
		return "json_extract(data, ?) IS NOT NULL"
	}
	return "json_extract(data, ?) IS NULL"
}

func (c *SQLCompiler) compileIn(in queryir.In) (string, []any, error) {
	if len(in.Values) == 0 {
		return "", nil, fmt.Errorf("empty IN list for %s", in.Field)
	}
	placeholders := strings.Repeat("?, ", len(in.Values)-1) + "?"
	params := make([]any, 0, len(in.Values)+1)
	params = append(params, jsonPath(in.Field))
	params = append(params, in.Values...)
	return "json_extract(data, ?) IN (" + placeholders + ")", params, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	var parts []string
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// jsonPath turns a validated dot path into a SQLite JSON path.
func jsonPath(field string) string {
	return "$." + field
}
