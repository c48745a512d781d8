package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func makeRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{i, "x"}
	}
	return rows
}

// TestLoadBatches_Basic verifies rows are grouped into batches and copyFn is
// called with the expected counts. It also checks the total equals the sum of
// all successful copyFn returns.
func TestLoadBatches_Basic(t *testing.T) {
	t.Parallel()

	var sizes []int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		sizes = append(sizes, len(rows))
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), quietLog(), []string{"c1", "c2"}, makeRows(7), 3, copyFn)
	if err != nil {
		t.Fatalf("LoadBatches error: %v", err)
	}
	if total != 7 {
		t.Fatalf("total rows %d, want 7", total)
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Fatalf("batch sizes %v, want [3 3 1]", sizes)
	}
}

// TestLoadBatches_BatchSizeDoesNotChangeResult checks that only the number of
// calls depends on the batch size.
func TestLoadBatches_BatchSizeDoesNotChangeResult(t *testing.T) {
	t.Parallel()

	for _, size := range []int{1, 2, 5, 100} {
		var seen []any
		copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
			for _, r := range rows {
				seen = append(seen, r[0])
			}
			return int64(len(rows)), nil
		}
		total, err := LoadBatches(context.Background(), quietLog(), []string{"c"}, makeRows(5), size, copyFn)
		if err != nil || total != 5 {
			t.Fatalf("size=%d: total=%d err=%v", size, total, err)
		}
		for i, v := range seen {
			if v != i {
				t.Fatalf("size=%d: row order broken at %d: %v", size, i, seen)
			}
		}
	}
}

// TestLoadBatches_ErrorPropagation ensures the first copy error is propagated
// and processing stops after that batch.
func TestLoadBatches_ErrorPropagation(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("copy failed")
	var batches int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		batches++
		if batches == 2 {
			return 0, wantErr
		}
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), quietLog(), []string{"c"}, makeRows(5), 2, copyFn)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	if total != 2 {
		t.Fatalf("total rows %d, want 2", total)
	}
	if batches != 2 {
		t.Fatalf("batches %d, want 2 (no batch after failure)", batches)
	}
}

// TestLoadBatches_ContextCancel checks the loader does not start a batch once
// the context is done.
func TestLoadBatches_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		called = true
		return int64(len(rows)), nil
	}
	_, err := LoadBatches(ctx, quietLog(), []string{"c"}, makeRows(3), 2, copyFn)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Fatal("copyFn called after cancellation")
	}
}

func TestLoadBatches_InvalidArgs(t *testing.T) {
	t.Parallel()

	if _, err := LoadBatches(context.Background(), quietLog(), nil, nil, 0, func(context.Context, []string, [][]any) (int64, error) { return 0, nil }); err == nil {
		t.Fatal("expected error for batchSize=0")
	}
	if _, err := LoadBatches(context.Background(), quietLog(), nil, nil, 1, nil); err == nil {
		t.Fatal("expected error for nil copyFn")
	}
}

func TestLoadBatches_Empty(t *testing.T) {
	t.Parallel()

	total, err := LoadBatches(context.Background(), quietLog(), []string{"c"}, nil, 10,
		func(context.Context, []string, [][]any) (int64, error) {
			t.Fatal("copyFn must not be called for empty input")
			return 0, nil
		})
	if err != nil || total != 0 {
		t.Fatalf("total=%d err=%v", total, err)
	}
}
