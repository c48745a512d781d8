package sales

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
)

func TestRecordValues_AlignedToColumns(t *testing.T) {
	t.Parallel()

	r := Record{
		ID:         "1",
		Date:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Region:     "East",
		City:       "Boston",
		Category:   "Bars",
		Product:    "Carrot",
		Qty:        33,
		UnitPrice:  decimal.RequireFromString("1.77"),
		TotalPrice: decimal.RequireFromString("58.41"),
	}
	vals := r.Values()
	if len(vals) != len(Columns) {
		t.Fatalf("len(values)=%d, len(Columns)=%d", len(vals), len(Columns))
	}
	if vals[0] != "1" || vals[2] != "East" || vals[6] != int64(33) {
		t.Fatalf("unexpected values: %v", vals)
	}
	if !vals[8].(decimal.Decimal).Equal(decimal.RequireFromString("58.41")) {
		t.Fatalf("totalprice = %v", vals[8])
	}
}

func TestProductionTable_Shape(t *testing.T) {
	t.Parallel()

	def := ProductionTable(ddl.TableName{Schema: "public", Name: "food_sales"})
	if got := def.ColumnNames(); len(got) != len(Columns) {
		t.Fatalf("columns = %v", got)
	}
	if len(def.PrimaryKey) != 1 || def.PrimaryKey[0] != ColID {
		t.Fatalf("primary key = %v", def.PrimaryKey)
	}
	if len(def.Checks) != 3 {
		t.Fatalf("checks = %v", def.Checks)
	}
	wantIdx := map[string]bool{
		"idx_food_sales_date": true, "idx_food_sales_region": true,
		"idx_food_sales_city": true, "idx_food_sales_cat_prod": true,
	}
	for _, idx := range def.Indexes {
		if !wantIdx[idx.Name] {
			t.Fatalf("unexpected index %q", idx.Name)
		}
		delete(wantIdx, idx.Name)
	}
	if len(wantIdx) != 0 {
		t.Fatalf("missing indexes: %v", wantIdx)
	}
}

func TestStagingTable_HasNoConstraints(t *testing.T) {
	t.Parallel()

	def := StagingTable(ddl.TableName{Name: "stage"})
	if len(def.PrimaryKey) != 0 || len(def.Checks) != 0 || len(def.Indexes) != 0 {
		t.Fatalf("staging must be a bare table, got %+v", def)
	}
	if len(def.Columns) != len(Columns) {
		t.Fatalf("staging columns = %d", len(def.Columns))
	}
}
