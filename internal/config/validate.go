package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to the user but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding. Path is the flag name.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var (
	knownDrivers    = map[string]struct{}{"postgres": {}, "sqlite": {}, "mssql": {}, "mysql": {}}
	knownLogFormats = map[string]struct{}{"text": {}, "json": {}}
	knownMetrics    = map[string]struct{}{"none": {}, "pushgateway": {}, "datadog": {}}
)

// Validate lints c without mutating it. needDB is false for commands that
// never open a database, which skips the table and driver checks.
func (c Config) Validate(needDB bool) []Issue {
	var issues []Issue
	errorf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.ExcelPath) == "" {
		errorf("excel-path", "must not be empty")
	}
	if strings.TrimSpace(c.Sheet) == "" {
		errorf("sheet", "must not be empty")
	}
	if c.HeaderRow < 0 {
		errorf("header-row", "must not be negative, got %d", c.HeaderRow)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errorf("log-level", "unknown level %q", c.LogLevel)
	}
	if _, ok := knownLogFormats[strings.ToLower(c.LogFormat)]; !ok {
		errorf("log-format", "unknown format %q; use text or json", c.LogFormat)
	}
	if _, ok := knownMetrics[strings.ToLower(c.MetricsBackend)]; !ok {
		errorf("metrics-backend", "unknown backend %q; use none, pushgateway or datadog", c.MetricsBackend)
	} else if strings.EqualFold(c.MetricsBackend, "pushgateway") && strings.TrimSpace(c.PushgatewayURL) == "" {
		errorf("pushgateway-url", "required when metrics-backend=pushgateway")
	} else if strings.EqualFold(c.MetricsBackend, "datadog") && strings.TrimSpace(c.DogStatsDAddr) == "" {
		errorf("dogstatsd-addr", "required when metrics-backend=datadog")
	}
	if c.Timeout < 0 {
		errorf("timeout", "must not be negative")
	}

	if !needDB {
		return issues
	}

	if c.BatchSize <= 0 {
		errorf("chunksize", "must be > 0, got %d", c.BatchSize)
	}
	driver := strings.ToLower(strings.TrimSpace(c.DBDriver))
	if driver == "" {
		errorf("db-driver", "must not be empty")
	} else if _, ok := knownDrivers[driver]; !ok {
		errorf("db-driver", "unknown driver %q", c.DBDriver)
	}
	if driver == "sqlite" && strings.TrimSpace(c.DSN) == "" && strings.TrimSpace(c.DBName) == "" {
		errorf("dsn", "sqlite needs --dsn or --db-name as the database file")
	}
	if driver == "sqlite" && c.Schema != "" {
		warnf("schema", "sqlite has no schemas; %q is ignored", c.Schema)
	}

	names := map[string]string{}
	for _, t := range []struct{ flag, name string }{
		{"table", c.Table},
		{"stage-table", c.StageTable},
		{"summary-table", c.SummaryTable},
	} {
		n := strings.TrimSpace(t.name)
		if n == "" {
			errorf(t.flag, "must not be empty")
			continue
		}
		key := strings.ToLower(n)
		if prev, dup := names[key]; dup {
			errorf(t.flag, "%q is also used by --%s", t.name, prev)
			continue
		}
		names[key] = t.flag
	}
	if strings.TrimSpace(c.GrandTotalLabel) == "" {
		warnf("grand-total-label", "empty; the default label is used")
	}
	return issues
}

// Err folds error-severity issues into one error, or returns nil.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}
