// Package storage contains storage-agnostic contracts and utilities.
//
// Backends (postgres, sqlite, mssql, mysql) implement Repository and Dialect
// and register a constructor with this package at init time. Callers obtain a
// Repository via New(...) and never import driver packages directly; see
// internal/storage/all for the blank-import wiring.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
)

// Repository is the minimal database surface used by the pipeline. Every
// method is a single round trip (or a batch of them for CopyFrom); the
// pipeline itself decides the order and builds SQL through Dialect.
type Repository interface {
	// Dialect returns the SQL dialect used to render statements for this backend.
	Dialect() Dialect

	// Exec runs one statement and returns the number of affected rows when the
	// driver reports it (0 otherwise).
	Exec(ctx context.Context, sql string) (int64, error)

	// QueryStrings runs a single-column query and returns the non-NULL values
	// rendered as strings, in result order.
	QueryStrings(ctx context.Context, sql string) ([]string, error)

	// CopyFrom bulk-inserts rows (aligned to columns) into table using the
	// backend's fastest primitive. One call is one transaction.
	CopyFrom(ctx context.Context, table ddl.TableName, columns []string, rows [][]any) (int64, error)

	// Close releases the underlying pool/connection.
	Close()
}

// Config carries connection parameters. DSN wins when set; otherwise each
// backend builds its own connection string from the discrete parts.
type Config struct {
	Kind     string
	DSN      string
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// Factory constructs a Repository for a backend.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
	dialects  = map[string]Dialect{}
)

// Register makes a backend available under kind. It is called from backend
// packages' init functions; registering the same kind twice replaces the
// previous factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(kind)] = f
}

// RegisterDialect publishes the dialect of kind so callers can consult it
// (text limits, identifier rules) before a connection exists.
func RegisterDialect(kind string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[strings.ToLower(kind)] = d
}

// LookupDialect returns the dialect registered for kind.
func LookupDialect(kind string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[strings.ToLower(strings.TrimSpace(kind))]
	return d, ok
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	mu.RLock()
	f, ok := factories[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	repo, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", kind, err)
	}
	return repo, nil
}

// Kinds lists registered backends, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
