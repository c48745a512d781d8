package ddl

import "strings"

// ColumnType is a logical, dialect-neutral column type. Backends map each
// value onto their own SQL type (e.g. Money → numeric(18,2) on Postgres,
// DECIMAL(18,2) on MySQL/MSSQL).
type ColumnType int

const (
	Text ColumnType = iota
	Date
	Integer
	Money
)

// String returns a lowercase name for the type, used in error messages.
func (t ColumnType) String() string {
	switch t {
	case Text:
		return "text"
	case Date:
		return "date"
	case Integer:
		return "integer"
	case Money:
		return "money"
	default:
		return "unknown"
	}
}

// TableName identifies a table, optionally qualified by a schema. Names are
// stored unquoted; quoting happens at render time in the backend dialect.
type TableName struct {
	Schema string
	Name   string
}

// String renders the dotted, unquoted form ("schema.table" or "table").
// It is meant for logs only; never splice it into SQL.
func (n TableName) String() string {
	if strings.TrimSpace(n.Schema) == "" {
		return n.Name
	}
	return n.Schema + "." + n.Name
}

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting/escaping happens at render time)
//   - Type: logical type, mapped per dialect
//   - Nullable: whether NULL is allowed
//   - Exact: text compares byte for byte; dialects whose default collation
//     folds case or accents render a binary collation
type ColumnDef struct {
	Name     string
	Type     ColumnType
	Nullable bool
	Exact    bool
}

// CheckDef is a named non-negativity constraint: CHECK (col IS NULL OR col >= 0).
type CheckDef struct {
	Name   string
	Column string
}

// IndexDef is a named, non-unique index over one or more columns.
type IndexDef struct {
	Name    string
	Columns []string
}

// TableDef holds the table name and an ordered list of columns plus optional
// key, check, and index definitions. A TableDef with no PrimaryKey, Checks,
// or Indexes describes a bare table (the staging shape).
type TableDef struct {
	Table      TableName
	Columns    []ColumnDef
	PrimaryKey []string
	Checks     []CheckDef
	Indexes    []IndexDef
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
