package config

import (
	"errors"
	"strings"
	"testing"
)

func valid() Config {
	return Config{
		ExcelPath:       "x.xlsx",
		Sheet:           "FoodSales",
		HeaderRow:       1,
		BatchSize:       100,
		Schema:          "public",
		Table:           "food_sales",
		StageTable:      "food_sales_staging",
		SummaryTable:    "food_sales_pivot",
		GrandTotalLabel: "Grand Total",
		DBDriver:        "postgres",
		LogLevel:        "info",
		LogFormat:       "text",
		MetricsBackend:  "none",
	}
}

func hasIssue(issues []Issue, sev IssueSeverity, path string) bool {
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		sev    IssueSeverity
		path   string
	}{
		{"empty path", func(c *Config) { c.ExcelPath = " " }, SeverityError, "excel-path"},
		{"empty sheet", func(c *Config) { c.Sheet = "" }, SeverityError, "sheet"},
		{"negative header", func(c *Config) { c.HeaderRow = -1 }, SeverityError, "header-row"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, SeverityError, "chunksize"},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, SeverityError, "db-driver"},
		{"empty table", func(c *Config) { c.Table = "" }, SeverityError, "table"},
		{"stage equals production", func(c *Config) { c.StageTable = "FOOD_SALES" }, SeverityError, "stage-table"},
		{"summary equals stage", func(c *Config) { c.SummaryTable = c.StageTable }, SeverityError, "summary-table"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, SeverityError, "log-level"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, SeverityError, "log-format"},
		{"bad metrics", func(c *Config) { c.MetricsBackend = "statsd" }, SeverityError, "metrics-backend"},
		{"pushgateway without url", func(c *Config) { c.MetricsBackend = "pushgateway" }, SeverityError, "pushgateway-url"},
		{"datadog without addr", func(c *Config) { c.MetricsBackend = "datadog" }, SeverityError, "dogstatsd-addr"},
		{"sqlite without file", func(c *Config) { c.DBDriver = "sqlite"; c.DBName = "" }, SeverityError, "dsn"},
		{"sqlite with schema", func(c *Config) { c.DBDriver = "sqlite"; c.DSN = "x.db" }, SeverityWarning, "schema"},
		{"empty total label", func(c *Config) { c.GrandTotalLabel = "" }, SeverityWarning, "grand-total-label"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := valid()
			tc.mutate(&c)
			issues := c.Validate(true)
			if !hasIssue(issues, tc.sev, tc.path) {
				t.Fatalf("want %s at %s, got %v", tc.sev, tc.path, issues)
			}
		})
	}
}

func TestValidate_CleanConfig(t *testing.T) {
	t.Parallel()

	if issues := valid().Validate(true); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestValidate_SkipsDatabaseChecks(t *testing.T) {
	t.Parallel()

	c := valid()
	c.DBDriver = ""
	c.BatchSize = 0
	c.Table = ""
	if issues := c.Validate(false); len(issues) != 0 {
		t.Fatalf("check-only lint should ignore db settings: %v", issues)
	}
}

func TestErr(t *testing.T) {
	t.Parallel()

	if Err([]Issue{{Severity: SeverityWarning, Path: "x", Message: "m"}}) != nil {
		t.Fatal("warnings alone must not fail")
	}
	bad := Issue{Severity: SeverityError, Path: "sheet", Message: "must not be empty"}
	err := Err([]Issue{bad})
	if err == nil || !strings.Contains(err.Error(), "error at sheet: must not be empty") {
		t.Fatalf("Err = %v", err)
	}
	var iss Issue
	if !errors.As(err, &iss) || iss.Path != "sheet" {
		t.Fatalf("errors.As Issue failed: %v", err)
	}
}
