package sqlite

import (
	"fmt"
	"strings"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// Dialect renders SQLite SQL. SQLite has no schemas in the Postgres sense
// (a qualifier names an attached database), so schema names are ignored.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) QuoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func (Dialect) QuoteLiteral(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

func (Dialect) CheckIdent(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("empty identifier")
	case strings.ContainsRune(id, 0):
		return fmt.Errorf("identifier %q contains a NUL byte", id)
	}
	return nil
}

// FoldIdent lowercases ASCII letters only; SQLite compares column names
// case-insensitively for ASCII and exactly for everything else.
func (Dialect) FoldIdent(id string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, id)
}

func (Dialect) MaxTextLen() int { return 0 }

func (d Dialect) Table(n ddl.TableName) string { return d.QuoteIdent(n.Name) }

func (Dialect) CreateSchema(string) []string { return nil }

func sqlType(c ddl.ColumnDef) (string, error) {
	switch c.Type {
	case ddl.Text:
		return "TEXT", nil
	case ddl.Date:
		return "DATE", nil
	case ddl.Integer:
		return "INTEGER", nil
	case ddl.Money:
		return "NUMERIC(18,2)", nil
	}
	return "", fmt.Errorf("sqlite: unsupported type %s", c.Type)
}

func (d Dialect) CreateTable(t ddl.TableDef) ([]string, error) {
	body, err := ddl.BuildTableBody(t, d.QuoteIdent, sqlType)
	if err != nil {
		return nil, err
	}
	stmts := []string{fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		d.Table(t.Table),
		strings.Join(body, ",\n  "),
	)}
	for _, idx := range t.Indexes {
		cols, err := ddl.IndexColumns(t, idx, d.QuoteIdent)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			d.QuoteIdent(idx.Name), d.Table(t.Table), strings.Join(cols, ", "),
		))
	}
	return stmts, nil
}

// Truncate uses DELETE: SQLite has no TRUNCATE statement.
func (d Dialect) Truncate(n ddl.TableName) string { return "DELETE FROM " + d.Table(n) }

func (d Dialect) DropTable(n ddl.TableName) string { return "DROP TABLE IF EXISTS " + d.Table(n) }

// InsertMissing relies on the WHERE clause to keep SQLite's parser from
// reading ON CONFLICT as a join constraint.
func (d Dialect) InsertMissing(dst, src ddl.TableName, columns []string, key string) string {
	return storage.InsertOnConflictDoNothing(d, dst, src, columns, key)
}

func (d Dialect) Distinct(n ddl.TableName, column string) string {
	return storage.SelectDistinct(d, n, column)
}

// Money rounds to two places; SQLite has no fixed-point type.
func (Dialect) Money(expr string) string { return "ROUND(" + expr + ", 2)" }

func (d Dialect) CreateTableAs(n ddl.TableName, q storage.SelectQuery) string {
	return "CREATE TABLE " + d.Table(n) + " AS\n" + q.SQL()
}
