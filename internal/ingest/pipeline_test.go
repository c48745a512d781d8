package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/logging"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/sales"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage/sqlite"
)

var testTables = sales.NewTables("public", "food_sales", "food_sales_staging", "food_sales_pivot")

func openRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), storage.Config{DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(repo.Close)
	return repo
}

func rec(id, region, category string, qty int64, total string) sales.Record {
	return sales.Record{
		ID:         id,
		Date:       time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		Region:     region,
		City:       "Boston",
		Category:   category,
		Product:    "Carrot",
		Qty:        qty,
		UnitPrice:  decimal.RequireFromString("1.00"),
		TotalPrice: decimal.RequireFromString(total),
	}
}

func newPipeline(repo storage.Repository, batch int) *Pipeline {
	return &Pipeline{Repo: repo, Tables: testTables, BatchSize: batch, Log: logging.Discard(), Job: "test"}
}

func count(t *testing.T, repo storage.Repository, table ddl.TableName) string {
	t.Helper()
	got, err := repo.QueryStrings(context.Background(), "SELECT COUNT(*) FROM "+repo.Dialect().Table(table))
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return got[0]
}

func tableExists(t *testing.T, repo storage.Repository, name string) bool {
	t.Helper()
	got, err := repo.QueryStrings(context.Background(),
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = "+repo.Dialect().QuoteLiteral(name))
	if err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	return len(got) == 1
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	repo := openRepo(t)
	records := []sales.Record{
		rec("1", "East", "Bars", 1, "100"),
		rec("2", "West", "Bars", 1, "50"),
		rec("3", "East", "Cookies", 1, "30"),
	}

	sum, err := newPipeline(repo, 2).Run(context.Background(), records)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if sum.RowsIn != 3 || sum.Staged != 3 || sum.Inserted != 3 {
		t.Fatalf("first run summary = %+v", sum)
	}
	if sum.Target != "public.food_sales" {
		t.Errorf("target = %q", sum.Target)
	}

	sum, err = newPipeline(repo, 2).Run(context.Background(), records)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum.Inserted != 0 {
		t.Fatalf("second run inserted %d, want 0", sum.Inserted)
	}
	if got := count(t, repo, testTables.Production); got != "3" {
		t.Fatalf("production rows = %s, want 3", got)
	}
	if tableExists(t, repo, testTables.Staging.Name) {
		t.Fatal("staging table still present after run")
	}
}

func TestRun_MergeNeverUpdatesExistingRows(t *testing.T) {
	t.Parallel()

	repo := openRepo(t)
	if _, err := newPipeline(repo, 10).Run(context.Background(), []sales.Record{rec("1", "East", "Bars", 5, "10")}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sum, err := newPipeline(repo, 10).Run(context.Background(), []sales.Record{
		rec("1", "West", "Cookies", 99, "999"),
		rec("2", "West", "Cookies", 1, "1"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Inserted != 1 {
		t.Fatalf("inserted = %d, want 1", sum.Inserted)
	}

	got, err := repo.QueryStrings(context.Background(), `SELECT "region" FROM "food_sales" WHERE "id" = '1'`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0] != "East" {
		t.Fatalf("existing row was modified: region=%v", got)
	}
}

func TestRun_StagingIsClearedBetweenRuns(t *testing.T) {
	t.Parallel()

	repo := openRepo(t)
	ctx := context.Background()
	log := logging.Discard()

	if err := EnsureProduction(ctx, repo, testTables, log); err != nil {
		t.Fatalf("EnsureProduction: %v", err)
	}
	// Leave a stale staging table behind, as a crashed run would.
	st, err := AcquireStaging(ctx, repo, testTables, []sales.Record{rec("stale", "North", "Bars", 1, "1")}, 10, log)
	if err != nil {
		t.Fatalf("AcquireStaging: %v", err)
	}
	if st.Rows != 1 || st.Batches != 1 {
		t.Fatalf("staging = %+v", st)
	}

	sum, err := newPipeline(repo, 10).Run(ctx, []sales.Record{rec("fresh", "East", "Bars", 1, "1")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Inserted != 1 {
		t.Fatalf("inserted = %d, want 1", sum.Inserted)
	}
	got, err := repo.QueryStrings(ctx, `SELECT "id" FROM "food_sales"`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0] != "fresh" {
		t.Fatalf("stale staging rows leaked into production: %v", got)
	}
}

// failingCopy wraps a repository and fails CopyFrom after n calls.
type failingCopy struct {
	storage.Repository
	okCalls int
	calls   int
}

func (f *failingCopy) CopyFrom(ctx context.Context, table ddl.TableName, columns []string, rows [][]any) (int64, error) {
	f.calls++
	if f.calls > f.okCalls {
		return 0, errors.New("copy exploded")
	}
	return f.Repository.CopyFrom(ctx, table, columns, rows)
}

func TestRun_StagingReleasedOnCopyFailure(t *testing.T) {
	t.Parallel()

	repo := openRepo(t)
	fake := &failingCopy{Repository: repo, okCalls: 1}

	records := make([]sales.Record, 5)
	for i := range records {
		records[i] = rec(fmt.Sprint(i), "East", "Bars", 1, "1")
	}
	sum, err := newPipeline(fake, 2).Run(context.Background(), records)

	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Phase != logging.PhaseStage {
		t.Fatalf("err = %v, want STAGE PhaseError", err)
	}
	if sum.Staged != 2 {
		t.Errorf("staged = %d, want 2 (first batch only)", sum.Staged)
	}
	if tableExists(t, repo, testTables.Staging.Name) {
		t.Fatal("staging table must be dropped after a failed load")
	}
	if got := count(t, repo, testTables.Production); got != "0" {
		t.Fatalf("production rows = %s, want 0", got)
	}
}

// failingExec fails any statement containing match.
type failingExec struct {
	storage.Repository
	match string
}

func (f *failingExec) Exec(ctx context.Context, sql string) (int64, error) {
	if strings.Contains(sql, f.match) {
		return 0, errors.New("exec exploded")
	}
	return f.Repository.Exec(ctx, sql)
}

func TestRun_PhaseAttribution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		match string
		phase string
	}{
		{`CREATE TABLE IF NOT EXISTS "food_sales" `, logging.PhaseInit},
		{`INSERT INTO "food_sales"`, logging.PhaseMerge},
		{`DROP TABLE`, logging.PhaseStage},
	}
	for _, tc := range tests {
		t.Run(tc.phase, func(t *testing.T) {
			t.Parallel()

			repo := openRepo(t)
			fake := &failingExec{Repository: repo, match: tc.match}
			_, err := newPipeline(fake, 10).Run(context.Background(), []sales.Record{rec("1", "East", "Bars", 1, "1")})

			var pe *PhaseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *PhaseError", err)
			}
			if pe.Phase != tc.phase {
				t.Fatalf("phase = %s, want %s (err: %v)", pe.Phase, tc.phase, err)
			}
		})
	}
}

func TestRun_RejectsBadBatchSize(t *testing.T) {
	t.Parallel()

	if _, err := newPipeline(openRepo(t), 0).Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for batch size 0")
	}
}

func TestRelease_Idempotent(t *testing.T) {
	t.Parallel()

	repo := openRepo(t)
	ctx := context.Background()
	st, err := AcquireStaging(ctx, repo, testTables, nil, 10, logging.Discard())
	if err != nil {
		t.Fatalf("AcquireStaging: %v", err)
	}
	if err := st.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := st.Release(ctx); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	var nilStaging *Staging
	if err := nilStaging.Release(ctx); err != nil {
		t.Fatalf("nil Release: %v", err)
	}
}

func TestRelease_RunsAfterCancel(t *testing.T) {
	t.Parallel()

	repo := openRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	st, err := AcquireStaging(ctx, repo, testTables, []sales.Record{rec("1", "East", "Bars", 1, "1")}, 10, logging.Discard())
	if err != nil {
		t.Fatalf("AcquireStaging: %v", err)
	}
	cancel()
	if err := st.Release(ctx); err != nil {
		t.Fatalf("Release after cancel: %v", err)
	}
	if tableExists(t, repo, testTables.Staging.Name) {
		t.Fatal("staging table survived release")
	}
}

func TestPhaseError(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	err := phaseErr(logging.PhaseMerge, base)
	if !errors.Is(err, base) {
		t.Fatal("PhaseError must unwrap")
	}
	if err.Error() != "MERGE: boom" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if phaseErr(logging.PhaseMerge, nil) != nil {
		t.Fatal("phaseErr(nil) must be nil")
	}
}
