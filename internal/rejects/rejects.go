// Package rejects writes rejected sheet rows to a CSV file so they can be
// fixed and re-submitted.
package rejects

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/validate"
)

// Header is the first row of every rejects file.
var Header = []string{"reason", "line_number", "id", "raw_line"}

// Writer appends rejections to a CSV file.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// Create makes any missing parent directories, truncates path and writes
// the header row.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{f: f, w: w}, nil
}

// Add records one rejection. The reason column carries the detail when
// present ("invalid date: \"x\"").
func (s *Writer) Add(r validate.Rejection) error {
	reason := r.Reason
	if r.Detail != "" {
		reason += ": " + r.Detail
	}
	return s.w.Write([]string{reason, strconv.Itoa(r.Line), r.ID, r.Raw})
}

// Close flushes buffered rows and closes the file.
func (s *Writer) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteFile writes every rejection in rs to path.
func WriteFile(path string, rs []validate.Rejection) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	for _, r := range rs {
		if err := w.Add(r); err != nil {
			_ = w.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return w.Close()
}
