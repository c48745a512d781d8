package mssql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

const (
	// maxIdentLen is the sysname limit, counted in characters.
	maxIdentLen = 128
	maxTextLen  = 255
)

// Dialect renders T-SQL.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return "mssql" }

// QuoteIdent quotes a SQL Server identifier using [brackets], escaping ].
func (Dialect) QuoteIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// QuoteLiteral renders a Unicode string constant (N'...').
func (Dialect) QuoteLiteral(s string) string { return "N'" + strings.ReplaceAll(s, "'", "''") + "'" }

func (Dialect) CheckIdent(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("empty identifier")
	case strings.ContainsRune(id, 0):
		return fmt.Errorf("identifier %q contains a NUL byte", id)
	case utf8.RuneCountInString(id) > maxIdentLen:
		return fmt.Errorf("identifier %q exceeds %d characters", id, maxIdentLen)
	}
	return nil
}

// FoldIdent lowercases; default collations compare column names
// case-insensitively.
func (Dialect) FoldIdent(id string) string { return strings.ToLower(id) }

// MaxTextLen is the NVARCHAR width, which counts UTF-16 code units.
func (Dialect) MaxTextLen() int { return maxTextLen }

func (d Dialect) Table(n ddl.TableName) string {
	if strings.TrimSpace(n.Schema) == "" {
		return d.QuoteIdent(n.Name)
	}
	return d.QuoteIdent(n.Schema) + "." + d.QuoteIdent(n.Name)
}

// CreateSchema runs CREATE SCHEMA through EXEC because it must be the only
// statement in its batch.
func (d Dialect) CreateSchema(schema string) []string {
	if strings.TrimSpace(schema) == "" {
		return nil
	}
	create := "CREATE SCHEMA " + d.QuoteIdent(schema)
	return []string{fmt.Sprintf(
		"IF SCHEMA_ID(%s) IS NULL EXEC(%s)",
		d.QuoteLiteral(schema), d.QuoteLiteral(create),
	)}
}

func sqlType(c ddl.ColumnDef) (string, error) {
	switch c.Type {
	case ddl.Text:
		// Bounded so text columns can be keyed and indexed.
		if c.Exact {
			return "NVARCHAR(" + strconv.Itoa(maxTextLen) + ") COLLATE Latin1_General_100_BIN2", nil
		}
		return "NVARCHAR(" + strconv.Itoa(maxTextLen) + ")", nil
	case ddl.Date:
		return "DATE", nil
	case ddl.Integer:
		return "INT", nil
	case ddl.Money:
		return "DECIMAL(18,2)", nil
	}
	return "", fmt.Errorf("mssql: unsupported type %s", c.Type)
}

func (d Dialect) objectExists(n ddl.TableName) string {
	return fmt.Sprintf("OBJECT_ID(%s, N'U')", d.QuoteLiteral(d.Table(n)))
}

// CreateTable renders a single guarded CREATE TABLE with inline indexes.
func (d Dialect) CreateTable(t ddl.TableDef) ([]string, error) {
	body, err := ddl.BuildTableBody(t, d.QuoteIdent, sqlType)
	if err != nil {
		return nil, err
	}
	for _, idx := range t.Indexes {
		cols, err := ddl.IndexColumns(t, idx, d.QuoteIdent)
		if err != nil {
			return nil, err
		}
		body = append(body, fmt.Sprintf("INDEX %s NONCLUSTERED (%s)", d.QuoteIdent(idx.Name), strings.Join(cols, ", ")))
	}
	return []string{fmt.Sprintf(
		"IF %s IS NULL\nCREATE TABLE %s (\n  %s\n)",
		d.objectExists(t.Table), d.Table(t.Table), strings.Join(body, ",\n  "),
	)}, nil
}

func (d Dialect) Truncate(n ddl.TableName) string { return "TRUNCATE TABLE " + d.Table(n) }

func (d Dialect) DropTable(n ddl.TableName) string {
	return fmt.Sprintf("IF %s IS NOT NULL DROP TABLE %s", d.objectExists(n), d.Table(n))
}

func (d Dialect) InsertMissing(dst, src ddl.TableName, columns []string, key string) string {
	return storage.InsertWhereNotExists(d, dst, src, columns, key)
}

func (d Dialect) Distinct(n ddl.TableName, column string) string {
	return storage.SelectDistinct(d, n, column)
}

func (Dialect) Money(expr string) string { return "CAST(" + expr + " AS DECIMAL(18,2))" }

// CreateTableAs uses SELECT ... INTO; T-SQL has no CREATE TABLE AS.
func (d Dialect) CreateTableAs(n ddl.TableName, q storage.SelectQuery) string {
	return "SELECT " + strings.Join(q.Columns, ",\n  ") + "\nINTO " + d.Table(n) + "\n" + q.Tail()
}
