package postgres

// This adapter wires the Postgres backend into the storage-agnostic factory by
// registering a constructor at init time. The CLI (cmd/foodsales) obtains a
// Repository via storage.New(...) without importing this package directly.

import (
	"context"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

func init() {
	storage.RegisterDialect("postgres", Dialect{})
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg)
	})
}
