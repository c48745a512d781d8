// Package ingest moves validated sales records into the production table:
// ensure the production table, load a staging table, merge new ids, drop
// the staging table.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/logging"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/metrics"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/sales"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// Pipeline runs one ingestion against Repo.
type Pipeline struct {
	Repo      storage.Repository
	Tables    sales.Tables
	BatchSize int
	Log       logrus.FieldLogger
	// Job labels emitted metrics.
	Job string
}

// Summary reports what one Run did.
type Summary struct {
	RowsIn   int
	Staged   int64
	Inserted int64
	Target   string
}

// Run ensures the production table, stages records and merges them. The
// staging table is dropped on every path; a failed drop is reported only
// when nothing else failed. Database errors are returned as *PhaseError.
func (p *Pipeline) Run(ctx context.Context, records []sales.Record) (sum Summary, err error) {
	if p.BatchSize <= 0 {
		return sum, fmt.Errorf("batch size must be > 0, got %d", p.BatchSize)
	}
	sum.RowsIn = len(records)
	sum.Target = p.Tables.Production.String()

	start := time.Now()
	err = EnsureProduction(ctx, p.Repo, p.Tables, p.Log)
	metrics.RecordStep(p.Job, "init", err, time.Since(start))
	if err != nil {
		return sum, phaseErr(logging.PhaseInit, err)
	}

	start = time.Now()
	st, err := AcquireStaging(ctx, p.Repo, p.Tables, records, p.BatchSize, p.Log)
	defer func() {
		if rerr := st.Release(ctx); rerr != nil && err == nil {
			err = phaseErr(logging.PhaseStage, rerr)
		}
	}()
	sum.Staged = st.Rows
	metrics.RecordStep(p.Job, "stage", err, time.Since(start))
	metrics.RecordRow(p.Job, metrics.KindStaged, st.Rows)
	metrics.RecordBatches(p.Job, st.Batches)
	if err != nil {
		return sum, phaseErr(logging.PhaseStage, err)
	}

	start = time.Now()
	sum.Inserted, err = Merge(ctx, p.Repo, p.Tables, p.Log)
	metrics.RecordStep(p.Job, "merge", err, time.Since(start))
	if err != nil {
		return sum, phaseErr(logging.PhaseMerge, err)
	}
	metrics.RecordRow(p.Job, metrics.KindInserted, sum.Inserted)

	if err = st.Release(ctx); err != nil {
		return sum, phaseErr(logging.PhaseStage, err)
	}

	logging.Phase(p.Log, logging.PhaseGoal).WithFields(logrus.Fields{
		"rows_in":  sum.RowsIn,
		"inserted": sum.Inserted,
		"target":   sum.Target,
	}).Info("ingest complete")
	return sum, nil
}
