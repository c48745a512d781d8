package postgres

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// maxIdentLen is NAMEDATALEN-1; longer identifiers are silently truncated by
// the server, which would let two distinct labels collide.
const maxIdentLen = 63

// Dialect renders Postgres SQL.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return "postgres" }

// QuoteIdent quotes a single identifier segment, e.g.:
//
//	QuoteIdent(`region`)     => `"region"`
//	QuoteIdent(`weird"name`) => `"weird""name"`
func (Dialect) QuoteIdent(id string) string { return pgx.Identifier{id}.Sanitize() }

// QuoteLiteral quotes a string constant. Strings containing a backslash use
// the E'' form with backslashes doubled so the result is correct regardless
// of standard_conforming_strings.
func (Dialect) QuoteLiteral(s string) string {
	q := "'" + strings.ReplaceAll(s, "'", "''") + "'"
	if strings.Contains(s, `\`) {
		q = "E" + strings.ReplaceAll(q, `\`, `\\`)
	}
	return q
}

func (Dialect) CheckIdent(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("empty identifier")
	case strings.ContainsRune(id, 0):
		return fmt.Errorf("identifier %q contains a NUL byte", id)
	case len(id) > maxIdentLen:
		return fmt.Errorf("identifier %q exceeds %d bytes", id, maxIdentLen)
	}
	return nil
}

// FoldIdent is the identity: quoted identifiers are case-sensitive.
func (Dialect) FoldIdent(id string) string { return id }

func (Dialect) Table(n ddl.TableName) string {
	if strings.TrimSpace(n.Schema) == "" {
		return pgx.Identifier{n.Name}.Sanitize()
	}
	return pgx.Identifier{n.Schema, n.Name}.Sanitize()
}

func (d Dialect) CreateSchema(schema string) []string {
	if strings.TrimSpace(schema) == "" {
		return nil
	}
	return []string{"CREATE SCHEMA IF NOT EXISTS " + d.QuoteIdent(schema)}
}

func sqlType(c ddl.ColumnDef) (string, error) {
	switch c.Type {
	case ddl.Text:
		return "text", nil
	case ddl.Date:
		return "date", nil
	case ddl.Integer:
		return "integer", nil
	case ddl.Money:
		return "numeric(18,2)", nil
	}
	return "", fmt.Errorf("postgres: unsupported type %s", c.Type)
}

// MaxTextLen is 0: text is unbounded.
func (Dialect) MaxTextLen() int { return 0 }

// CreateTable renders CREATE TABLE IF NOT EXISTS followed by one
// CREATE INDEX IF NOT EXISTS per index.
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

func (d Dialect) Truncate(n ddl.TableName) string { return "TRUNCATE TABLE " + d.Table(n) }

func (d Dialect) DropTable(n ddl.TableName) string { return "DROP TABLE IF EXISTS " + d.Table(n) }

func (d Dialect) InsertMissing(dst, src ddl.TableName, columns []string, key string) string {
	return storage.InsertOnConflictDoNothing(d, dst, src, columns, key)
}

func (d Dialect) Distinct(n ddl.TableName, column string) string {
	return storage.SelectDistinct(d, n, column)
}

func (Dialect) Money(expr string) string { return "CAST(" + expr + " AS numeric(18,2))" }

func (d Dialect) CreateTableAs(n ddl.TableName, q storage.SelectQuery) string {
	return "CREATE TABLE " + d.Table(n) + " AS\n" + q.SQL()
}
