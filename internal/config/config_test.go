package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func load(t *testing.T, env map[string]string, args ...string) *Config {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg, err := LoadFromArgs(fs, func(k string) string { return env[k] }, args)
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	return cfg
}

func TestLoadFromArgs_Defaults(t *testing.T) {
	t.Parallel()

	cfg := load(t, nil)
	if cfg.ExcelPath != "./data/foodsales.xlsx" || cfg.Sheet != "FoodSales" || cfg.HeaderRow != 1 {
		t.Fatalf("source defaults: %+v", cfg)
	}
	if cfg.BatchSize != 20000 || cfg.Schema != "public" || cfg.Table != "food_sales" ||
		cfg.StageTable != "food_sales_staging" || cfg.SummaryTable != "food_sales_pivot" {
		t.Fatalf("table defaults: %+v", cfg)
	}
	if cfg.DBDriver != "postgres" || cfg.DBHost != "localhost" || cfg.DBPort != "" || cfg.DBUser != "postgres" {
		t.Fatalf("db defaults: %+v", cfg)
	}
	if cfg.GrandTotalLabel != "Grand Total" || cfg.MetricsBackend != "none" || cfg.DogStatsDAddr != "127.0.0.1:8125" || cfg.Timeout != 0 {
		t.Fatalf("misc defaults: %+v", cfg)
	}
	if issues := cfg.Validate(true); Err(issues) != nil {
		t.Fatalf("defaults must lint clean: %v", issues)
	}
}

func TestLoadFromArgs_EnvThenFlags(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"DB_DRIVER":   "mssql",
		"DB_DSN":      "sqlserver://u:p@h:1433?database=d",
		"CHUNKSIZE":   "12",
		"HEADER_ROW":  "0",
		"RUN_TIMEOUT": "90s",
		"PGPORT":      "15432",
	}
	cfg := load(t, env, "--chunksize=3", "--sheet", "Sales")

	if cfg.DBDriver != "mssql" || cfg.DSN == "" || cfg.DBPort != "15432" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.BatchSize != 3 {
		t.Fatalf("flag must win over env: chunksize=%d", cfg.BatchSize)
	}
	if cfg.HeaderRow != 0 || cfg.Sheet != "Sales" || cfg.Timeout != 90*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadFromArgs_BadEnvFallsBack(t *testing.T) {
	t.Parallel()

	cfg := load(t, map[string]string{"CHUNKSIZE": "lots", "RUN_TIMEOUT": "soon"})
	if cfg.BatchSize != 20000 || cfg.Timeout != 0 {
		t.Fatalf("invalid env should keep defaults: %+v", cfg)
	}
}

func TestLoadFromArgs_UnknownFlag(t *testing.T) {
	t.Parallel()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))
	if _, err := LoadFromArgs(fs, func(string) string { return "" }, []string{"--nope"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestStorageConfigAndTables(t *testing.T) {
	t.Parallel()

	cfg := load(t, nil, "--db-driver=sqlite", "--dsn=file:x.db", "--schema=sales", "--table=fs")
	sc := cfg.StorageConfig()
	if sc.Kind != "sqlite" || sc.DSN != "file:x.db" || sc.Database != "postgres" {
		t.Fatalf("storage config = %+v", sc)
	}
	tables := cfg.Tables()
	if tables.Production.String() != "sales.fs" || tables.Staging.Name != "food_sales_staging" {
		t.Fatalf("tables = %+v", tables)
	}
}

func TestTablesAreTrimmed(t *testing.T) {
	t.Parallel()

	cfg := load(t, map[string]string{"TABLE": " food_sales "}, "--stage-table=\tstage\n", "--schema= sales")
	tables := cfg.Tables()
	if tables.Production.Name != "food_sales" || tables.Staging.Name != "stage" || tables.Production.Schema != "sales" {
		t.Fatalf("tables = %+v", tables)
	}
}

func TestLoadDotEnv(t *testing.T) {
	// Mutates the process environment.
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FOODSALES_TEST_SHEET=FromDotEnv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FOODSALES_TEST_SHEET", "")
	os.Unsetenv("FOODSALES_TEST_SHEET")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("FOODSALES_TEST_SHEET"); got != "FromDotEnv" {
		t.Fatalf("env = %q", got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file must be ignored: %v", err)
	}
	if err := LoadDotEnv(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}
}
