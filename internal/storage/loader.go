package storage

// Batched loading: rows are cut into fixed-size slices and handed to a
// backend's bulk primitive (Postgres COPY, MSSQL bulk copy, multi-row or
// prepared INSERTs for MySQL and SQLite). Each loaded batch logs a debug
// progress line with the running total and the rows/s since the last one.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// the provided rows (aligned to 'columns' order) and return the number of
// rows reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches groups rows into batches of batchSize and calls copyFn for each
// non-empty batch, in order. It returns the total number of rows reported by
// copyFn and the first error encountered; no batch is attempted after an
// error or after ctx is done.
func LoadBatches(
	ctx context.Context,
	log logrus.FieldLogger,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batch size must be > 0, got %d", batchSize)
	}
	if copyFn == nil {
		return 0, errors.New("nil copy function")
	}

	var (
		total    int64
		batch    int64
		began    = time.Now()
		prevAt   = began
		prevRows int64
	)

	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(rows))

		n, err := copyFn(ctx, columns, rows[lo:hi])
		total += n
		batch++
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"batch": batch,
				"rows":  n,
				"total": total,
			}).Error("batch load failed")
			return total, err
		}

		now := time.Now()
		gap := now.Sub(prevAt)
		var rate float64
		if gap > 0 {
			rate = float64(total-prevRows) / gap.Seconds()
		}
		log.WithFields(logrus.Fields{
			"batch":   batch,
			"rows":    n,
			"total":   total,
			"rows_s":  int64(rate),
			"elapsed": now.Sub(began).Truncate(time.Millisecond),
		}).Debug("batch loaded")
		prevAt, prevRows = now, total
	}

	log.WithFields(logrus.Fields{"batches": batch, "total": total}).Debug("load finished")
	return total, nil
}
