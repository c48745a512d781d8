// Package postgres implements a Postgres repository using pgx v5. Bulk loads
// go through COPY; everything else is a single Exec on the pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/ddl"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

const defaultPort = "5432"

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Repository)(nil)

// BuildDSN returns cfg.DSN when set, otherwise a postgres:// URL built from
// the discrete connection parts.
func BuildDSN(cfg storage.Config) string {
	if strings.TrimSpace(cfg.DSN) != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port == "" {
		port = defaultPort
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, port),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String()
}

// NewRepository opens a pool and pings it so connection errors surface before
// any pipeline phase starts.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	pcfg, err := pgxpool.ParseConfig(BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("pgxpool config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", pgError(err))
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Dialect() storage.Dialect { return Dialect{} }

// Exec runs sql and returns the affected-row count from the command tag.
func (r *Repository) Exec(ctx context.Context, sql string) (int64, error) {
	tag, err := r.pool.Exec(ctx, sql)
	if err != nil {
		return 0, pgError(err)
	}
	return tag.RowsAffected(), nil
}

// QueryStrings renders every non-NULL value of the first column as a string.
func (r *Repository) QueryStrings(ctx context.Context, sql string) ([]string, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, pgError(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*string, error) {
		vals, err := row.Values()
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 || vals[0] == nil {
			return nil, nil
		}
		s := fmt.Sprint(vals[0])
		return &s, nil
	})
	if err != nil {
		return nil, pgError(err)
	}
	res := make([]string, 0, len(out))
	for _, s := range out {
		if s != nil {
			res = append(res, *s)
		}
	}
	return res, nil
}

// CopyFrom streams rows into table with the COPY protocol.
func (r *Repository) CopyFrom(ctx context.Context, table ddl.TableName, columns []string, rows [][]any) (int64, error) {
	conv := make([][]any, len(rows))
	for i, row := range rows {
		c := make([]any, len(row))
		for j, v := range row {
			c[j] = toCopyVal(v)
		}
		conv[i] = c
	}
	n, err := r.pool.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(conv))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", table, pgError(err))
	}
	return n, nil
}

func (r *Repository) Close() { r.pool.Close() }

// identifier converts a table name into a pgx.Identifier {"schema","table"}.
func identifier(n ddl.TableName) pgx.Identifier {
	if strings.TrimSpace(n.Schema) == "" {
		return pgx.Identifier{n.Name}
	}
	return pgx.Identifier{n.Schema, n.Name}
}

// toCopyVal maps pipeline values onto pgtype values the binary COPY encoder
// understands without relying on driver.Valuer fallbacks.
func toCopyVal(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return pgtype.Numeric{Int: t.Coefficient(), Exp: t.Exponent(), Valid: true}
	case time.Time:
		if t.IsZero() {
			return pgtype.Date{}
		}
		return pgtype.Date{Time: t, Valid: true}
	case int64:
		return int32(t)
	default:
		return v
	}
}

// pgError surfaces the server detail and SQLSTATE when available.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s; SQLSTATE %s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}
