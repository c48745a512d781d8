package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/config"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/ingest"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/logging"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/metrics"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/metrics/datadog"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/metrics/prompush"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/pivot"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/rejects"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/source/xlsx"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/validate"
)

// metricsJob labels every metric emitted by this binary.
const metricsJob = prompush.DefaultJob

// app holds the state shared by the sub-commands of one invocation.
type app struct {
	getenv func(string) string
	stdout io.Writer
	stderr io.Writer

	cfg   *config.Config
	log   *logrus.Entry // nil until setup succeeds
	runID string
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "foodsales",
		Short: "Load the FoodSales workbook and rebuild the sales summary",
		Long: "foodsales validates the FoodSales worksheet, merges new rows into the production\n" +
			"table through a staging table, then rebuilds the category by region summary.\n" +
			"Without a sub-command it behaves like `foodsales run`.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runAll,
	}
	a.cfg = config.Bind(root.PersistentFlags(), a.getenv)

	root.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Read and validate the workbook without touching the database",
			Args:  cobra.NoArgs,
			RunE:  a.runCheck,
		},
		&cobra.Command{
			Use:   "ingest",
			Short: "Validate the workbook and merge new rows into the production table",
			Args:  cobra.NoArgs,
			RunE:  a.runIngest,
		},
		&cobra.Command{
			Use:   "pivot",
			Short: "Rebuild the summary table from the production table",
			Args:  cobra.NoArgs,
			RunE:  a.runPivot,
		},
		&cobra.Command{
			Use:   "run",
			Short: "ingest, then pivot",
			Args:  cobra.NoArgs,
			RunE:  a.runAll,
		},
	)
	return root
}

// setup lints the configuration, builds the logger, installs the metrics
// backend and applies --timeout. The returned func must be called when the
// command finishes.
func (a *app) setup(ctx context.Context, needDB bool) (context.Context, func(), error) {
	issues := a.cfg.Validate(needDB)
	if err := config.Err(issues); err != nil {
		return ctx, func() {}, withCode(exitInput, fmt.Errorf("invalid configuration: %w", err))
	}

	logger, err := logging.New(a.cfg.LogLevel, a.cfg.LogFormat, a.stderr)
	if err != nil {
		return ctx, func() {}, withCode(exitInput, err)
	}
	a.runID = uuid.NewString()
	a.log = logger.WithField(logging.FieldRunID, a.runID)
	for _, iss := range issues {
		a.log.Warn(iss.Error())
	}

	flush := a.installMetrics()

	cancel := func() {}
	if a.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return ctx, func() {
		cancel()
		flush()
	}, nil
}

// installMetrics swaps in the configured metrics backend. A backend that
// cannot be built leaves metrics disabled.
func (a *app) installMetrics() func() {
	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(a.cfg.MetricsBackend) {
	case "pushgateway":
		b, err = prompush.NewBackend(metricsJob, a.cfg.PushgatewayURL, map[string]string{logging.FieldRunID: a.runID})
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       a.cfg.DogStatsDAddr,
			GlobalTags: []string{logging.FieldRunID + ":" + a.runID},
		})
	default:
		a.log.WithField("backend", a.cfg.MetricsBackend).Debug("metrics disabled")
		return func() {}
	}
	if err != nil {
		a.log.WithError(err).Warnf("metrics: %s backend unavailable; using nop", a.cfg.MetricsBackend)
		return func() {}
	}
	a.log.WithField("backend", a.cfg.MetricsBackend).Info("metrics enabled")
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			a.log.WithError(err).Warn("metrics: flush failed")
		}
	}
}

func (a *app) runCheck(cmd *cobra.Command, _ []string) error {
	_, done, err := a.setup(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer done()

	res, err := a.load()
	if res.Read > 0 || err == nil {
		printResult(a.stdout, res)
	}
	return err
}

func (a *app) runIngest(cmd *cobra.Command, _ []string) error {
	ctx, done, err := a.setup(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer done()

	res, err := a.load()
	if err != nil {
		return err
	}
	repo, err := a.openRepo(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()
	return a.ingest(ctx, repo, res)
}

func (a *app) runPivot(cmd *cobra.Command, _ []string) error {
	ctx, done, err := a.setup(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer done()

	repo, err := a.openRepo(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()
	return a.pivot(ctx, repo)
}

func (a *app) runAll(cmd *cobra.Command, _ []string) error {
	ctx, done, err := a.setup(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer done()

	res, err := a.load()
	if err != nil {
		return err
	}
	repo, err := a.openRepo(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := a.ingest(ctx, repo, res); err != nil {
		return err
	}
	return a.pivot(ctx, repo)
}

// load reads and validates the configured worksheet and writes the rejects
// file when one is configured. Every error is an input error.
func (a *app) load() (validate.Result, error) {
	var res validate.Result
	log := logging.Phase(a.log, logging.PhaseRead)
	log.WithFields(logrus.Fields{
		"path":       a.cfg.ExcelPath,
		"sheet":      a.cfg.Sheet,
		"header_row": a.cfg.HeaderRow,
	}).Info("reading workbook")

	start := time.Now()
	sheet, err := xlsx.Read(a.cfg.ExcelPath, a.cfg.Sheet)
	if err != nil {
		metrics.RecordStep(metricsJob, "read", err, time.Since(start))
		return res, withCode(exitInput, err)
	}
	v := validate.New(a.log, sheet.Date1904)
	if d, ok := storage.LookupDialect(a.cfg.DBDriver); ok {
		v.MaxTextLen = d.MaxTextLen()
	}
	res, err = v.Validate(sheet.Rows, a.cfg.HeaderRow)
	metrics.RecordStep(metricsJob, "read", err, time.Since(start))
	metrics.RecordRow(metricsJob, metrics.KindRead, int64(res.Read))
	metrics.RecordRow(metricsJob, metrics.KindAccepted, int64(len(res.Accepted)))
	metrics.RecordRow(metricsJob, metrics.KindRejected, int64(len(res.Rejected)))

	if a.cfg.RejectsPath != "" && (err == nil || res.Read > 0) {
		if werr := rejects.WriteFile(a.cfg.RejectsPath, res.Rejected); werr != nil {
			return res, withCode(exitInput, fmt.Errorf("rejects: %w", werr))
		}
		log.WithField("path", a.cfg.RejectsPath).Infof("wrote %d rejected rows", len(res.Rejected))
	}
	return res, withCode(exitInput, err)
}

func (a *app) openRepo(ctx context.Context) (storage.Repository, error) {
	repo, err := storage.New(ctx, a.cfg.StorageConfig())
	if err != nil {
		return nil, withCode(exitDB, &ingest.PhaseError{Phase: logging.PhaseInit, Err: err})
	}
	return repo, nil
}

func (a *app) ingest(ctx context.Context, repo storage.Repository, res validate.Result) error {
	p := &ingest.Pipeline{
		Repo:      repo,
		Tables:    a.cfg.Tables(),
		BatchSize: a.cfg.BatchSize,
		Log:       a.log,
		Job:       metricsJob,
	}
	_, err := p.Run(ctx, res.Accepted)
	return withCode(exitDB, err)
}

func (a *app) pivot(ctx context.Context, repo storage.Repository) error {
	g := &pivot.Generator{
		Repo:            repo,
		Tables:          a.cfg.Tables(),
		GrandTotalLabel: a.cfg.GrandTotalLabel,
		Log:             a.log,
	}
	start := time.Now()
	_, err := g.Generate(ctx)
	metrics.RecordStep(metricsJob, "pivot", err, time.Since(start))
	if err != nil {
		return withCode(exitPivot, fmt.Errorf("pivot: %w", err))
	}
	return nil
}

// fail reports a command error: as a FAIL log line once the logger exists,
// on plain stderr before that.
func (a *app) fail(err error, code int) {
	if a.log == nil {
		fmt.Fprintf(a.stderr, "foodsales: %v\n", err)
		return
	}
	phase := logging.PhaseRead
	var pe *ingest.PhaseError
	switch {
	case errors.As(err, &pe):
		phase = pe.Phase
	case code == exitPivot:
		phase = logging.PhasePivot
	}
	logging.Phase(a.log, logging.PhaseFail).WithFields(logrus.Fields{
		"failed_phase": phase,
		"exit_code":    code,
	}).Error(err.Error())
}

func printResult(w io.Writer, res validate.Result) {
	fmt.Fprintf(w, "read=%d accepted=%d rejected=%d\n", res.Read, len(res.Accepted), len(res.Rejected))
	counts := res.ReasonCounts()
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "  %s=%d\n", r, counts[r])
	}
}
