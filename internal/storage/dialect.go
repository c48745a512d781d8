package storage

import (
	"strings"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
)

// Dialect renders backend-specific SQL. Implementations must route every
// identifier through QuoteIdent and every data-derived string through
// QuoteLiteral; no method may splice raw input into a statement.
type Dialect interface {
	// Name is the storage kind this dialect belongs to ("postgres", ...).
	Name() string

	// QuoteIdent quotes a single identifier segment.
	QuoteIdent(id string) string
	// QuoteLiteral quotes a string constant.
	QuoteLiteral(s string) string
	// CheckIdent reports whether id can be used verbatim as a column label
	// (length limits, forbidden characters).
	CheckIdent(id string) error
	// FoldIdent maps an identifier to the form the backend uses to decide
	// whether two column names clash.
	FoldIdent(id string) string
	// MaxTextLen is the longest text value, in UTF-16 code units, that every
	// text column accepts. 0 means unbounded.
	MaxTextLen() int

	// Table renders a (possibly schema-qualified) quoted table name.
	Table(n ddl.TableName) string

	// CreateSchema returns the statements that create schema when absent.
	// Backends without schemas return nil.
	CreateSchema(schema string) []string
	// CreateTable returns the statements that create t (and its indexes)
	// when absent.
	CreateTable(t ddl.TableDef) ([]string, error)
	// Truncate removes every row from the table.
	Truncate(n ddl.TableName) string
	// DropTable drops the table if it exists.
	DropTable(n ddl.TableName) string

	// InsertMissing copies rows of src into dst, skipping rows whose key is
	// NULL or already present in dst. It never updates existing rows.
	InsertMissing(dst, src ddl.TableName, columns []string, key string) string

	// Distinct selects the distinct non-NULL values of column, ordered.
	Distinct(n ddl.TableName, column string) string
	// Money casts a numeric expression to the fixed two-decimal money type.
	Money(expr string) string
	// CreateTableAs materializes q as a new table n.
	CreateTableAs(n ddl.TableName, q SelectQuery) string
}

// SelectQuery is a pre-rendered aggregate SELECT. Every element must already
// be quoted by the dialect that will render it.
type SelectQuery struct {
	Columns []string
	From    string
	GroupBy []string
	OrderBy []string
}

// Tail renders everything after the column list: FROM, GROUP BY, ORDER BY.
func (q SelectQuery) Tail() string {
	var sb strings.Builder
	sb.WriteString("FROM ")
	sb.WriteString(q.From)
	if len(q.GroupBy) > 0 {
		sb.WriteString("\nGROUP BY ")
		sb.WriteString(strings.Join(q.GroupBy, ", "))
	}
	if len(q.OrderBy) > 0 {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(strings.Join(q.OrderBy, ", "))
	}
	return sb.String()
}

// SQL renders the plain SELECT statement.
func (q SelectQuery) SQL() string {
	return "SELECT " + strings.Join(q.Columns, ",\n  ") + "\n" + q.Tail()
}

// QuoteAll maps names through d.QuoteIdent.
func QuoteAll(d Dialect, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.QuoteIdent(n)
	}
	return out
}

// QualifyAll prefixes each quoted column with a table alias ("s"."id").
func QualifyAll(d Dialect, alias string, names []string) []string {
	out := make([]string, len(names))
	qa := d.QuoteIdent(alias)
	for i, n := range names {
		out[i] = qa + "." + d.QuoteIdent(n)
	}
	return out
}

// InsertWhereNotExists renders the portable anti-join form of
// Dialect.InsertMissing for backends without ON CONFLICT.
func InsertWhereNotExists(d Dialect, dst, src ddl.TableName, columns []string, key string) string {
	k := d.QuoteIdent(key)
	return "INSERT INTO " + d.Table(dst) + " (" + strings.Join(QuoteAll(d, columns), ", ") + ")\n" +
		"SELECT " + strings.Join(QualifyAll(d, "s", columns), ", ") + "\n" +
		"FROM " + d.Table(src) + " " + d.QuoteIdent("s") + "\n" +
		"WHERE " + d.QuoteIdent("s") + "." + k + " IS NOT NULL\n" +
		"  AND NOT EXISTS (SELECT 1 FROM " + d.Table(dst) + " " + d.QuoteIdent("p") +
		" WHERE " + d.QuoteIdent("p") + "." + k + " = " + d.QuoteIdent("s") + "." + k + ")"
}

// InsertOnConflictDoNothing renders Dialect.InsertMissing for backends that
// support INSERT … ON CONFLICT (Postgres, SQLite).
func InsertOnConflictDoNothing(d Dialect, dst, src ddl.TableName, columns []string, key string) string {
	k := d.QuoteIdent(key)
	return "INSERT INTO " + d.Table(dst) + " (" + strings.Join(QuoteAll(d, columns), ", ") + ")\n" +
		"SELECT " + strings.Join(QualifyAll(d, "s", columns), ", ") + "\n" +
		"FROM " + d.Table(src) + " " + d.QuoteIdent("s") + "\n" +
		"WHERE " + d.QuoteIdent("s") + "." + k + " IS NOT NULL\n" +
		"ON CONFLICT (" + k + ") DO NOTHING"
}

// SelectDistinct renders the common form of Dialect.Distinct.
func SelectDistinct(d Dialect, n ddl.TableName, column string) string {
	c := d.QuoteIdent(column)
	return "SELECT DISTINCT " + c + " FROM " + d.Table(n) + " WHERE " + c + " IS NOT NULL ORDER BY " + c
}
