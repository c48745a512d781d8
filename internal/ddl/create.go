// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render the body of CREATE TABLE statements from that model.
//
// The package does not know any SQL dialect. Callers pass a quoting function
// and a type mapper; backend packages (internal/storage/postgres, sqlite,
// mssql, mysql) wrap the rendered body with their own CREATE TABLE form
// (IF NOT EXISTS, OBJECT_ID guards, inline indexes, and so on).
package ddl

import (
	"fmt"
	"strings"
)

// BuildTableBody renders the element list of a CREATE TABLE statement.
//
// Rules:
//
//   - t.Table.Name must be non-empty.
//
//   - Each column must have a non-empty Name and a type known to typeOf,
//     which also renders any collation the column needs.
//
//   - A column is rendered as:
//
//     <quoted name> <type> [NOT NULL]
//
//     Primary-key columns are always NOT NULL, even if Nullable=true.
//
//   - PRIMARY KEY (<cols>) follows the columns, in declaration order.
//
//   - Each CheckDef renders CONSTRAINT <name> CHECK (<col> IS NULL OR <col> >= 0).
//
// Indexes are not rendered here; dialects differ on whether they can be
// declared inline.
func BuildTableBody(t TableDef, quote func(string) string, typeOf func(ColumnDef) (string, error)) ([]string, error) {
	name := strings.TrimSpace(t.Table.Name)
	if name == "" {
		return nil, fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("ddl: at least one column is required for %s", t.Table)
	}

	known := make(map[string]struct{}, len(t.Columns))
	pk := make(map[string]struct{}, len(t.PrimaryKey))
	for _, k := range t.PrimaryKey {
		pk[k] = struct{}{}
	}

	out := make([]string, 0, len(t.Columns)+1+len(t.Checks))
	for _, c := range t.Columns {
		cname := strings.TrimSpace(c.Name)
		if cname == "" {
			return nil, fmt.Errorf("ddl: column with empty name in table %s", t.Table)
		}
		typ, err := typeOf(c)
		if err != nil {
			return nil, fmt.Errorf("ddl: column %s: %w", cname, err)
		}
		known[cname] = struct{}{}

		var sb strings.Builder
		sb.WriteString(quote(cname))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if _, isKey := pk[cname]; isKey || !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		out = append(out, sb.String())
	}

	if len(t.PrimaryKey) > 0 {
		cols, err := quoteKnown(t.PrimaryKey, known, quote)
		if err != nil {
			return nil, fmt.Errorf("ddl: primary key of %s: %w", t.Table, err)
		}
		out = append(out, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(cols, ", ")))
	}

	for _, ck := range t.Checks {
		if _, ok := known[ck.Column]; !ok {
			return nil, fmt.Errorf("ddl: check %s references unknown column %q", ck.Name, ck.Column)
		}
		col := quote(ck.Column)
		out = append(out, fmt.Sprintf("CONSTRAINT %s CHECK (%s IS NULL OR %s >= 0)", quote(ck.Name), col, col))
	}

	return out, nil
}

// IndexColumns validates an index definition against the table's columns and
// returns the quoted column list.
func IndexColumns(t TableDef, idx IndexDef, quote func(string) string) ([]string, error) {
	if strings.TrimSpace(idx.Name) == "" {
		return nil, fmt.Errorf("ddl: index with empty name on %s", t.Table)
	}
	if len(idx.Columns) == 0 {
		return nil, fmt.Errorf("ddl: index %s has no columns", idx.Name)
	}
	known := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		known[c.Name] = struct{}{}
	}
	cols, err := quoteKnown(idx.Columns, known, quote)
	if err != nil {
		return nil, fmt.Errorf("ddl: index %s: %w", idx.Name, err)
	}
	return cols, nil
}

func quoteKnown(cols []string, known map[string]struct{}, quote func(string) string) ([]string, error) {
	out := make([]string, len(cols))
	for i, c := range cols {
		if _, ok := known[c]; !ok {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		out[i] = quote(c)
	}
	return out, nil
}
