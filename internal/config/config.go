// Package config centralizes process configuration. Every tunable is a
// command-line flag whose default is seeded from an environment variable, so
// `--help` lists all knobs and a deployment can be driven by env alone.
//
// Typical usage from a cobra command:
//
//	cfg := config.Bind(cmd.PersistentFlags(), os.Getenv)
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"--chunksize=10"})
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/sales"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// Config holds everything a run needs. All fields are plain values so the
// struct can be copied freely after flags are parsed.
type Config struct {
	// Source workbook.
	ExcelPath string
	Sheet     string
	HeaderRow int // 0-based row offset of the header

	// Target tables.
	BatchSize       int
	Schema          string
	Table           string
	StageTable      string
	SummaryTable    string
	GrandTotalLabel string

	// DB describes the target database. DSN wins over the discrete parts.
	DBDriver   string
	DSN        string
	DBHost     string
	DBPort     string // empty means the driver's default port
	DBName     string
	DBUser     string
	DBPassword string

	RejectsPath string // empty disables the rejects CSV

	LogLevel  string
	LogFormat string

	MetricsBackend string // "none", "pushgateway" or "datadog"
	PushgatewayURL string
	DogStatsDAddr  string

	Timeout time.Duration // 0 means no deadline
}

// Bind defines every flag on fs with defaults taken from getenv and returns
// the Config the flags write into. The values are final once fs is parsed.
func Bind(fs *pflag.FlagSet, getenv func(string) string) *Config {
	cfg := &Config{}

	envOr := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOr := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return i
			}
		}
		return d
	}
	durationEnvOr := func(k string, d time.Duration) time.Duration {
		if v := getenv(k); v != "" {
			if dur, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
				return dur
			}
		}
		return d
	}

	// Source
	fs.StringVar(&cfg.ExcelPath, "excel-path", envOr("EXCEL_PATH", "./data/foodsales.xlsx"), "Path to the source .xlsx workbook")
	fs.StringVar(&cfg.Sheet, "sheet", envOr("EXCEL_SHEET", "FoodSales"), "Worksheet name")
	fs.IntVar(&cfg.HeaderRow, "header-row", intEnvOr("HEADER_ROW", 1), "0-based row offset of the header row")

	// Tables
	fs.IntVar(&cfg.BatchSize, "chunksize", intEnvOr("CHUNKSIZE", 20000), "Rows per staging batch")
	fs.StringVar(&cfg.Schema, "schema", envOr("SCHEMA", "public"), "Database schema")
	fs.StringVar(&cfg.Table, "table", envOr("TABLE", "food_sales"), "Production table")
	fs.StringVar(&cfg.StageTable, "stage-table", envOr("STAGE_TABLE", "food_sales_staging"), "Staging table")
	fs.StringVar(&cfg.SummaryTable, "summary-table", envOr("SUMMARY_TABLE", "food_sales_pivot"), "Summary (pivot) table")
	fs.StringVar(&cfg.GrandTotalLabel, "grand-total-label", envOr("GRAND_TOTAL_LABEL", "Grand Total"), "Label of the grand total column")

	// DB connectivity
	fs.StringVar(&cfg.DBDriver, "db-driver", envOr("DB_DRIVER", "postgres"), "Database driver: postgres, sqlite, mssql or mysql")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full DSN; overrides the discrete connection flags")
	fs.StringVar(&cfg.DBHost, "db-host", envOr("PGHOST", "localhost"), "DB host")
	fs.StringVar(&cfg.DBPort, "db-port", getenv("PGPORT"), "DB port (driver default when empty)")
	fs.StringVar(&cfg.DBName, "db-name", envOr("PGDATABASE", "postgres"), "DB name (file path for sqlite)")
	fs.StringVar(&cfg.DBUser, "db-user", envOr("PGUSER", "postgres"), "DB user")
	fs.StringVar(&cfg.DBPassword, "db-password", getenv("PGPASSWORD"), "DB password")

	// Diagnostics
	fs.StringVar(&cfg.RejectsPath, "rejects-path", getenv("REJECTS_PATH"), "Write rejected rows to this CSV (disabled when empty)")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level")
	fs.StringVar(&cfg.LogFormat, "log-format", envOr("LOG_FORMAT", "text"), "Log format: text or json")
	fs.StringVar(&cfg.MetricsBackend, "metrics-backend", envOr("METRICS_BACKEND", "none"), "Metrics backend: none, pushgateway or datadog")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway-url", envOr("PUSHGATEWAY_URL", "http://localhost:9091"), "Prometheus Pushgateway URL")
	fs.StringVar(&cfg.DogStatsDAddr, "dogstatsd-addr", envOr("DD_DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD agent address")
	fs.DurationVar(&cfg.Timeout, "timeout", durationEnvOr("RUN_TIMEOUT", 0), "Abort the run after this long (0 disables)")

	return cfg
}

// LoadFromArgs binds flags on fs and parses args.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit flags in args override the seeded defaults.
func LoadFromArgs(fs *pflag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Bind(fs, getenv)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// StorageConfig returns the connection parameters for storage.New.
func (c Config) StorageConfig() storage.Config {
	return storage.Config{
		Kind:     c.DBDriver,
		DSN:      c.DSN,
		Host:     c.DBHost,
		Port:     c.DBPort,
		Database: c.DBName,
		User:     c.DBUser,
		Password: c.DBPassword,
	}
}

// Tables returns the qualified table names, stripped of surrounding
// whitespace.
func (c Config) Tables() sales.Tables {
	return sales.NewTables(
		strings.TrimSpace(c.Schema),
		strings.TrimSpace(c.Table),
		strings.TrimSpace(c.StageTable),
		strings.TrimSpace(c.SummaryTable),
	)
}
