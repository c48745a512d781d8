package ingest

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/logging"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/sales"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// EnsureProduction creates the schema and the production table (with its
// key, checks and indexes) when they do not exist yet. Existing objects are
// left untouched.
func EnsureProduction(ctx context.Context, repo storage.Repository, tables sales.Tables, log logrus.FieldLogger) error {
	d := repo.Dialect()
	stmts := d.CreateSchema(tables.Production.Schema)
	create, err := d.CreateTable(sales.ProductionTable(tables.Production))
	if err != nil {
		return fmt.Errorf("render production DDL: %w", err)
	}
	stmts = append(stmts, create...)

	if err := execAll(ctx, repo, stmts); err != nil {
		return err
	}
	logging.Phase(log, logging.PhaseInit).
		WithField("table", tables.Production.String()).
		Info("production table ready")
	return nil
}

func execAll(ctx context.Context, repo storage.Repository, stmts []string) error {
	for _, s := range stmts {
		if _, err := repo.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
