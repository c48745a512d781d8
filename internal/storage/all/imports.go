// Package all wires all built-in storage backends into the storage factory.
//
// Importing it for side effects runs each backend's init function, which
// registers the following kinds with storage.New:
//
//   - "postgres"
//   - "mssql"
//   - "mysql"
//   - "sqlite"
//
// A binary that needs only a subset can blank-import the backend packages
// directly instead.
package all

import (
	_ "github.com/thatsaphon2745/food-sales-pipeline/internal/storage/mssql"
	_ "github.com/thatsaphon2745/food-sales-pipeline/internal/storage/mysql"
	_ "github.com/thatsaphon2745/food-sales-pipeline/internal/storage/postgres"
	_ "github.com/thatsaphon2745/food-sales-pipeline/internal/storage/sqlite"
)
