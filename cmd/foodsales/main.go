// Command foodsales loads the FoodSales worksheet of an Excel workbook into a
// relational database and rebuilds the category by region sales summary.
//
// QUICK START (Postgres):
//
//	go build -o foodsales ./cmd/foodsales
//	./foodsales run \
//	  --excel-path=./data/foodsales.xlsx \
//	  --db-host=localhost --db-name=postgres --db-user=postgres --db-password=secret
//
// QUICK START (SQLite, no server):
//
//	./foodsales run --db-driver=sqlite --dsn=./foodsales.db --schema=
//
// Every flag can also be set through the environment (see --help) or a .env
// file in the working directory.
//
// Exit codes: 0 success, 1 input or configuration error, 2 database error
// while loading, 3 pivot error.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/config"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/ingest"

	// register all backends with the storage factory.
	_ "github.com/thatsaphon2745/food-sales-pipeline/internal/storage/all"
)

const (
	exitOK    = 0
	exitInput = 1
	exitDB    = 2
	exitPivot = 3
)

// codedError carries the process exit code for err.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// exitCode maps err to a process exit code. Errors without an explicit code
// are phase errors from the loader (database) or usage errors from flag
// parsing (input).
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	var pe *ingest.PhaseError
	if errors.As(err, &pe) {
		return exitDB
	}
	return exitInput
}

func main() {
	path := os.Getenv("DOTENV_PATH")
	if path == "" {
		path = ".env"
	}
	if err := config.LoadDotEnv(path); err != nil {
		fmt.Fprintf(os.Stderr, "foodsales: %v\n", err)
		os.Exit(exitInput)
	}
	os.Exit(execute(context.Background(), os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

// execute runs the command line in args and returns the exit code.
func execute(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	a := &app{getenv: getenv, stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	code := exitCode(err)
	if err != nil {
		a.fail(err, code)
	}
	return code
}
