// Package pivot rebuilds the summary table: one row per category, one
// column per distinct region holding that region's total sales, and a grand
// total column. The column set is discovered from the data on every run.
package pivot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/logging"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/sales"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// DefaultGrandTotalLabel names the total column when none is configured.
const DefaultGrandTotalLabel = "Grand Total"

// Generator rebuilds Tables.Summary from Tables.Production.
type Generator struct {
	Repo            storage.Repository
	Tables          sales.Tables
	GrandTotalLabel string
	Log             logrus.FieldLogger
}

// Result describes the rebuilt summary table.
type Result struct {
	Table  string
	Labels []string // region columns, in column order
	Rows   int64
}

// Generate drops the summary table and recreates it from the current
// production data in a single CREATE TABLE AS statement. When the data has
// no region, or a region cannot be a column label, no summary is created.
func (g *Generator) Generate(ctx context.Context) (Result, error) {
	res := Result{Table: g.Tables.Summary.String()}
	d := g.Repo.Dialect()
	log := logging.Phase(g.Log, logging.PhasePivot)

	total := g.GrandTotalLabel
	if total == "" {
		total = DefaultGrandTotalLabel
	}
	if err := checkLabel(d, total); err != nil {
		return res, fmt.Errorf("grand total label: %w", err)
	}
	if d.FoldIdent(total) == d.FoldIdent(sales.ColCategory) {
		return res, fmt.Errorf("grand total label: %w: %q collides with %q", ErrUnsafeLabel, total, sales.ColCategory)
	}

	if _, err := g.Repo.Exec(ctx, d.DropTable(g.Tables.Summary)); err != nil {
		return res, fmt.Errorf("drop %s: %w", res.Table, err)
	}

	regions, err := g.Repo.QueryStrings(ctx, d.Distinct(g.Tables.Production, sales.ColRegion))
	if err != nil {
		return res, fmt.Errorf("distinct %s: %w", sales.ColRegion, err)
	}
	if len(regions) == 0 {
		return res, fmt.Errorf("%w: %s has no %s", ErrNoDimensionValues, g.Tables.Production, sales.ColRegion)
	}
	// Collations differ between backends; sort bytewise for a stable order.
	sort.Strings(regions)

	b := NewColumnBuilder(d, sales.ColRegion, sales.ColTotalPrice, sales.ColCategory, total)
	if err := b.AddAll(regions); err != nil {
		return res, err
	}
	res.Labels = b.Labels()
	log.WithField("columns", len(res.Labels)).Infof("pivot columns: %s", strings.Join(res.Labels, ", "))

	category := d.QuoteIdent(sales.ColCategory)
	cols := make([]string, 0, len(b.Columns())+2)
	cols = append(cols, category)
	cols = append(cols, b.Columns()...)
	cols = append(cols, d.Money("SUM("+d.QuoteIdent(sales.ColTotalPrice)+")")+" AS "+d.QuoteIdent(total))

	q := storage.SelectQuery{
		Columns: cols,
		From:    d.Table(g.Tables.Production),
		GroupBy: []string{category},
		OrderBy: []string{category},
	}
	if _, err := g.Repo.Exec(ctx, d.CreateTableAs(g.Tables.Summary, q)); err != nil {
		return res, fmt.Errorf("create %s: %w", res.Table, err)
	}

	n, err := g.Repo.QueryStrings(ctx, "SELECT COUNT(*) FROM "+d.Table(g.Tables.Summary))
	if err != nil {
		return res, fmt.Errorf("count %s: %w", res.Table, err)
	}
	if len(n) != 1 {
		return res, fmt.Errorf("count %s: got %d values", res.Table, len(n))
	}
	if res.Rows, err = strconv.ParseInt(n[0], 10, 64); err != nil {
		return res, fmt.Errorf("count %s: %w", res.Table, err)
	}

	log.WithFields(logrus.Fields{
		"table": res.Table,
		"rows":  res.Rows,
	}).Info("summary table rebuilt")
	return res, nil
}
