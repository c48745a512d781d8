package sqlite

import (
	"context"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// init registers the "sqlite" backend with the storage factory.
func init() {
	storage.RegisterDialect("sqlite", Dialect{})
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg)
	})
}
