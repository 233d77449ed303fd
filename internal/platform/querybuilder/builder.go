// Package querybuilder assembles parameterized postgres statements. It is
// deliberately small: the repositories only need SELECT, INSERT, and UPDATE
// with flat WHERE clauses, so anything fancier goes through Expr.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// stmt accumulates SQL text and its positional arguments.
type stmt struct {
	buf  strings.Builder
	args []any
}

func (s *stmt) raw(text string) {
	s.buf.WriteString(text)
}

// bind appends a value and writes its $n placeholder.
func (s *stmt) bind(value any) {
	s.args = append(s.args, value)
	s.buf.WriteString("$")
	s.buf.WriteString(strconv.Itoa(len(s.args)))
}

// rewrite copies expr into the statement, replacing each ? with the next
// positional placeholder. Extra ? markers are left as-is.
func (s *stmt) rewrite(expr string, exprArgs []any) {
	if len(exprArgs) == 0 {
		s.raw(expr)
		return
	}

	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && next < len(exprArgs) {
			s.bind(exprArgs[next])
			next++
			continue
		}
		s.buf.WriteByte(expr[i])
	}
}

// Condition renders one WHERE term into a statement.
type Condition func(s *stmt)

func Eq(column string, value any) Condition {
	return func(s *stmt) {
		s.raw(column)
		s.raw(" = ")
		s.bind(value)
	}
}

func In(column string, values []any) Condition {
	return func(s *stmt) {
		if len(values) == 0 {
			s.raw("1=0")
			return
		}
		s.raw(column)
		s.raw(" IN (")
		for i, v := range values {
			if i > 0 {
				s.raw(", ")
			}
			s.bind(v)
		}
		s.raw(")")
	}
}

func IsNull(column string) Condition {
	return func(s *stmt) {
		s.raw(column)
		s.raw(" IS NULL")
	}
}

// Expr injects a raw SQL fragment with ? placeholders for its args.
func Expr(expr string, args ...any) Condition {
	return func(s *stmt) {
		s.rewrite(expr, args)
	}
}

func (s *stmt) where(conditions []Condition) {
	for i, c := range conditions {
		if i == 0 {
			s.raw(" WHERE ")
		} else {
			s.raw(" AND ")
		}
		c(s)
	}
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var s stmt
	s.raw("SELECT ")
	s.raw(strings.Join(b.columns, ", "))
	s.raw(" FROM ")
	s.raw(b.table)
	s.where(b.where)
	if len(b.orderBy) > 0 {
		s.raw(" ORDER BY ")
		s.raw(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		s.raw(" LIMIT ")
		s.raw(strconv.Itoa(b.limit))
	}

	return s.buf.String(), s.args, nil
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// Suffix appends a trailing clause such as ON CONFLICT or RETURNING.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}

	var s stmt
	s.raw("INSERT INTO ")
	s.raw(b.table)
	s.raw(" (")
	s.raw(strings.Join(b.columns, ", "))
	s.raw(") VALUES ")

	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", rowIdx, len(row), len(b.columns))
		}
		if rowIdx > 0 {
			s.raw(", ")
		}
		s.raw("(")
		for colIdx, value := range row {
			if colIdx > 0 {
				s.raw(", ")
			}
			s.bind(value)
		}
		s.raw(")")
	}

	if b.suffix != "" {
		s.raw(" ")
		s.rewrite(b.suffix, nil)
	}

	return s.buf.String(), s.args, nil
}

type setClause struct {
	column string
	value  any
	expr   string
	args   []any
	isExpr bool
}

type UpdateBuilder struct {
	table  string
	sets   []setClause
	where  []Condition
	suffix string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, setClause{column: column, value: value})
	return b
}

// SetExpr assigns a raw SQL expression with ? placeholders for its args.
func (b *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	b.sets = append(b.sets, setClause{column: column, expr: expr, args: args, isExpr: true})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("update table is required")
	}
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update sets are required")
	}

	var s stmt
	s.raw("UPDATE ")
	s.raw(b.table)
	s.raw(" SET ")

	for i, set := range b.sets {
		if i > 0 {
			s.raw(", ")
		}
		s.raw(set.column)
		s.raw(" = ")
		if set.isExpr {
			s.rewrite(set.expr, set.args)
		} else {
			s.bind(set.value)
		}
	}

	s.where(b.where)
	if b.suffix != "" {
		s.raw(" ")
		s.rewrite(b.suffix, nil)
	}

	return s.buf.String(), s.args, nil
}
