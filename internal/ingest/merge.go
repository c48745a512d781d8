package ingest

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/logging"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/sales"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// Merge inserts every staging row whose id is not yet in production, as a
// single statement. Existing production rows are never updated and rows
// with a NULL id are skipped. It returns the number of rows inserted.
func Merge(ctx context.Context, repo storage.Repository, tables sales.Tables, log logrus.FieldLogger) (int64, error) {
	stmt := repo.Dialect().InsertMissing(tables.Production, tables.Staging, sales.Columns, sales.ColID)
	n, err := repo.Exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("merge into %s: %w", tables.Production, err)
	}
	logging.Phase(log, logging.PhaseMerge).WithFields(logrus.Fields{
		"target":   tables.Production.String(),
		"inserted": n,
	}).Info("merge complete")
	return n, nil
}
