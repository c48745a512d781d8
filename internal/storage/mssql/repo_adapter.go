package mssql

import (
	"context"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// init registers the "mssql" backend with the factory.
func init() {
	storage.RegisterDialect("mssql", Dialect{})
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg)
	})
}
