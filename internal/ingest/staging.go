package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/logging"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/sales"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// releaseTimeout bounds the staging drop, which runs even after the caller's
// context has been cancelled.
const releaseTimeout = 30 * time.Second

// Staging is a populated staging table. It must be released exactly once;
// further Release calls are no-ops.
type Staging struct {
	repo     storage.Repository
	table    ddl.TableName
	log      logrus.FieldLogger
	released bool

	// Rows is the number of rows loaded.
	Rows int64
	// Batches is the number of CopyFrom calls that succeeded.
	Batches int64
}

// AcquireStaging creates the staging table if needed, clears it and loads
// records in batches of batchSize, one transaction per batch.
//
// The returned *Staging is never nil, even on error, so callers can always
// defer Release.
func AcquireStaging(
	ctx context.Context,
	repo storage.Repository,
	tables sales.Tables,
	records []sales.Record,
	batchSize int,
	log logrus.FieldLogger,
) (*Staging, error) {
	s := &Staging{repo: repo, table: tables.Staging, log: log}
	d := repo.Dialect()

	create, err := d.CreateTable(sales.StagingTable(tables.Staging))
	if err != nil {
		return s, fmt.Errorf("render staging DDL: %w", err)
	}
	if err := execAll(ctx, repo, create); err != nil {
		return s, fmt.Errorf("create staging table: %w", err)
	}
	if _, err := repo.Exec(ctx, d.Truncate(tables.Staging)); err != nil {
		return s, fmt.Errorf("clear staging table: %w", err)
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = r.Values()
	}
	n, err := storage.LoadBatches(ctx, log, sales.Columns, rows, batchSize,
		func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
			n, err := repo.CopyFrom(ctx, tables.Staging, columns, batch)
			if err == nil {
				s.Batches++
			}
			return n, err
		})
	s.Rows = n
	if err != nil {
		return s, fmt.Errorf("load staging table: %w", err)
	}

	logging.Phase(log, logging.PhaseStage).WithFields(logrus.Fields{
		"table":   tables.Staging.String(),
		"rows":    n,
		"batches": s.Batches,
	}).Info("staging loaded")
	return s, nil
}

// Release drops the staging table. It runs detached from ctx cancellation
// so a timed-out run still cleans up.
func (s *Staging) Release(ctx context.Context) error {
	if s == nil || s.released {
		return nil
	}
	s.released = true

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if _, err := s.repo.Exec(ctx, s.repo.Dialect().DropTable(s.table)); err != nil {
		logging.Phase(s.log, logging.PhaseStage).WithError(err).
			WithField("table", s.table.String()).
			Error("drop staging table failed")
		return fmt.Errorf("drop staging table: %w", err)
	}
	logging.Phase(s.log, logging.PhaseStage).
		WithField("table", s.table.String()).
		Info("staging dropped")
	return nil
}
