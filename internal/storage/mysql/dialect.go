package mysql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

const (
	maxIdentLen = 64
	maxTextLen  = 255
)

// Dialect renders MySQL SQL. A schema maps to a MySQL database.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) QuoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// QuoteLiteral escapes backslashes as well as quotes; the server treats \ as
// an escape character unless NO_BACKSLASH_ESCAPES is set.
func (Dialect) QuoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (Dialect) CheckIdent(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("empty identifier")
	case strings.ContainsRune(id, 0):
		return fmt.Errorf("identifier %q contains a NUL byte", id)
	case utf8.RuneCountInString(id) > maxIdentLen:
		return fmt.Errorf("identifier %q exceeds %d characters", id, maxIdentLen)
	case strings.HasSuffix(id, " "):
		return fmt.Errorf("identifier %q ends with a space", id)
	}
	return nil
}

// FoldIdent lowercases: column names are case-insensitive.
func (Dialect) FoldIdent(id string) string { return strings.ToLower(id) }

// MaxTextLen matches the VARCHAR width of text columns. VARCHAR counts
// characters, so a value within the limit in UTF-16 units always fits.
func (Dialect) MaxTextLen() int { return maxTextLen }

func (d Dialect) Table(n ddl.TableName) string {
	if strings.TrimSpace(n.Schema) == "" {
		return d.QuoteIdent(n.Name)
	}
	return d.QuoteIdent(n.Schema) + "." + d.QuoteIdent(n.Name)
}

func (d Dialect) CreateSchema(schema string) []string {
	if strings.TrimSpace(schema) == "" {
		return nil
	}
	return []string{"CREATE DATABASE IF NOT EXISTS " + d.QuoteIdent(schema)}
}

func sqlType(c ddl.ColumnDef) (string, error) {
	switch c.Type {
	case ddl.Text:
		if c.Exact {
			return "VARCHAR(" + strconv.Itoa(maxTextLen) + ") COLLATE utf8mb4_bin", nil
		}
		return "VARCHAR(" + strconv.Itoa(maxTextLen) + ")", nil
	case ddl.Date:
		return "DATE", nil
	case ddl.Integer:
		return "INT", nil
	case ddl.Money:
		return "DECIMAL(18,2)", nil
	}
	return "", fmt.Errorf("mysql: unsupported type %s", c.Type)
}

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
		body = append(body, fmt.Sprintf("INDEX %s (%s)", d.QuoteIdent(idx.Name), strings.Join(cols, ", ")))
	}
	return []string{fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		d.Table(t.Table), strings.Join(body, ",\n  "),
	)}, nil
}

func (d Dialect) Truncate(n ddl.TableName) string { return "TRUNCATE TABLE " + d.Table(n) }

func (d Dialect) DropTable(n ddl.TableName) string { return "DROP TABLE IF EXISTS " + d.Table(n) }

// InsertMissing uses NOT EXISTS rather than INSERT IGNORE, which would also
// swallow CHECK and conversion errors.
func (d Dialect) InsertMissing(dst, src ddl.TableName, columns []string, key string) string {
	return storage.InsertWhereNotExists(d, dst, src, columns, key)
}

func (d Dialect) Distinct(n ddl.TableName, column string) string {
	return storage.SelectDistinct(d, n, column)
}

func (Dialect) Money(expr string) string { return "CAST(" + expr + " AS DECIMAL(18,2))" }

func (d Dialect) CreateTableAs(n ddl.TableName, q storage.SelectQuery) string {
	return "CREATE TABLE " + d.Table(n) + " AS\n" + q.SQL()
}
