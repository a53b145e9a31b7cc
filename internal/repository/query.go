package repository

import (
	"fmt"
	"strings"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"

	"github.com/lib/pq"
)

// Statement builders. Identifiers are validated against the schema registry
// and quoted; every value becomes a $n placeholder in args.

func quote(ident string) string { return pq.QuoteIdentifier(ident) }

// appendWhere writes ` WHERE a = $n AND b = $n+1` and returns the grown args.
func appendWhere(b *strings.Builder, args []any, where []Predicate) []any {
	for i, p := range where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, normalizeValue(p.Value))
		fmt.Fprintf(b, "%s = $%d", quote(p.Column), len(args))
	}
	return args
}

func buildSelect(l Lookup) (*tableSchema, []string, string, []any, error) {
	t, err := lookupTable(l.Table)
	if err != nil {
		return nil, nil, "", nil, err
	}
	cols := l.Columns
	if len(cols) == 0 {
		cols = t.columns
	}
	if err := checkColumns(t, cols); err != nil {
		return nil, nil, "", nil, err
	}
	if err := checkPredicates(t, l.Where); err != nil {
		return nil, nil, "", nil, err
	}
	orderBy := l.OrderBy
	if orderBy == "" && t.hasID {
		orderBy = "id"
	}
	if orderBy != "" && !t.hasColumn(orderBy) {
		return nil, nil, "", nil, domain.E(domain.KindValidation, "unknown column "+orderBy+" on "+t.name)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quote(t.name))
	args := appendWhere(&b, nil, l.Where)
	if orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(quote(orderBy))
	}
	if l.Single {
		b.WriteString(" LIMIT 1")
	}
	return t, cols, b.String(), args, nil
}

func buildInsert(table string, values []Predicate) (*tableSchema, string, []any, error) {
	t, err := lookupTable(table)
	if err != nil {
		return nil, "", nil, err
	}
	if len(values) == 0 {
		return nil, "", nil, domain.E(domain.KindValidation, "no columns to insert")
	}
	if err := checkPredicates(t, values); err != nil {
		return nil, "", nil, err
	}

	cols := make([]string, len(values))
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		cols[i] = quote(v.Column)
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = normalizeValue(v.Value)
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(t.name), strings.Join(cols, ", "), strings.Join(marks, ", "))
	if t.hasID {
		q += " RETURNING " + quote("id")
	}
	return t, q, args, nil
}

func buildUpdate(table string, key []Predicate, values []Predicate) (string, []any, error) {
	t, err := lookupTable(table)
	if err != nil {
		return "", nil, err
	}
	if len(values) == 0 {
		return "", nil, domain.E(domain.KindValidation, "no columns to update")
	}
	if len(key) == 0 {
		return "", nil, domain.E(domain.KindValidation, "update requires a key")
	}
	if err := checkPredicates(t, values); err != nil {
		return "", nil, err
	}
	if err := checkPredicates(t, key); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(quote(t.name))
	b.WriteString(" SET ")
	args := make([]any, 0, len(values)+len(key))
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, normalizeValue(v.Value))
		fmt.Fprintf(&b, "%s = $%d", quote(v.Column), len(args))
	}
	args = appendWhere(&b, args, key)
	return b.String(), args, nil
}

func buildDelete(table string, where []Predicate) (string, []any, error) {
	t, err := lookupTable(table)
	if err != nil {
		return "", nil, err
	}
	if len(where) == 0 {
		return "", nil, domain.E(domain.KindValidation, "delete requires at least one predicate")
	}
	if err := checkPredicates(t, where); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(quote(t.name))
	args := appendWhere(&b, nil, where)
	return b.String(), args, nil
}

func buildMax(table, column string, where []Predicate) (string, []any, error) {
	t, err := lookupTable(table)
	if err != nil {
		return "", nil, err
	}
	if err := checkColumns(t, []string{column}); err != nil {
		return "", nil, err
	}
	if err := checkPredicates(t, where); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT MAX(%s) FROM %s", quote(column), quote(t.name))
	args := appendWhere(&b, nil, where)
	return b.String(), args, nil
}
