// Package sales holds the business object for one row of the FoodSales
// export and the table shapes it is persisted into.
package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
)

// Column names, in production/staging order.
const (
	ColID         = "id"
	ColDate       = "date"
	ColRegion     = "region"
	ColCity       = "city"
	ColCategory   = "category"
	ColProduct    = "product"
	ColQty        = "qty"
	ColUnitPrice  = "unitprice"
	ColTotalPrice = "totalprice"
)

// Columns is the ordered column list used for COPY and INSERT … SELECT.
var Columns = []string{
	ColID, ColDate, ColRegion, ColCity, ColCategory, ColProduct,
	ColQty, ColUnitPrice, ColTotalPrice,
}

// MoneyScale is the number of fractional digits kept for prices.
const MoneyScale = 2

// Record is a validated sales row.
type Record struct {
	ID         string
	Date       time.Time // calendar date, UTC midnight
	Region     string
	City       string
	Category   string
	Product    string
	Qty        int64
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// Values returns the record aligned to Columns. Backends convert the Go
// types (time.Time, decimal.Decimal) into their own wire representations.
func (r Record) Values() []any {
	return []any{
		r.ID, r.Date, r.Region, r.City, r.Category, r.Product,
		r.Qty, r.UnitPrice, r.TotalPrice,
	}
}

// Tables names every table the pipeline touches.
type Tables struct {
	Production ddl.TableName
	Staging    ddl.TableName
	Summary    ddl.TableName
}

// NewTables places the three tables in the same schema.
func NewTables(schema, production, staging, summary string) Tables {
	return Tables{
		Production: ddl.TableName{Schema: schema, Name: production},
		Staging:    ddl.TableName{Schema: schema, Name: staging},
		Summary:    ddl.TableName{Schema: schema, Name: summary},
	}
}

func columnDefs() []ddl.ColumnDef {
	return []ddl.ColumnDef{
		{Name: ColID, Type: ddl.Text, Exact: true},
		{Name: ColDate, Type: ddl.Date, Nullable: true},
		{Name: ColRegion, Type: ddl.Text, Nullable: true},
		{Name: ColCity, Type: ddl.Text, Nullable: true},
		{Name: ColCategory, Type: ddl.Text, Nullable: true},
		{Name: ColProduct, Type: ddl.Text, Nullable: true},
		{Name: ColQty, Type: ddl.Integer, Nullable: true},
		{Name: ColUnitPrice, Type: ddl.Money, Nullable: true},
		{Name: ColTotalPrice, Type: ddl.Money, Nullable: true},
	}
}

// ProductionTable is the durable table: keyed on id, non-negative checks on
// the numeric columns, and the indexes the pivot aggregation relies on.
func ProductionTable(name ddl.TableName) ddl.TableDef {
	prefix := "idx_" + name.Name + "_"
	return ddl.TableDef{
		Table:      name,
		Columns:    columnDefs(),
		PrimaryKey: []string{ColID},
		Checks: []ddl.CheckDef{
			{Name: "chk_" + name.Name + "_qty_nonneg", Column: ColQty},
			{Name: "chk_" + name.Name + "_unitprice_nonneg", Column: ColUnitPrice},
			{Name: "chk_" + name.Name + "_totalprice_nonneg", Column: ColTotalPrice},
		},
		Indexes: []ddl.IndexDef{
			{Name: prefix + "date", Columns: []string{ColDate}},
			{Name: prefix + "region", Columns: []string{ColRegion}},
			{Name: prefix + "city", Columns: []string{ColCity}},
			{Name: prefix + "cat_prod", Columns: []string{ColCategory, ColProduct}},
		},
	}
}

// StagingTable has the production column shape and nothing else: no key,
// no checks, no indexes.
func StagingTable(name ddl.TableName) ddl.TableDef {
	return ddl.TableDef{
		Table:   name,
		Columns: columnDefs(),
	}
}
