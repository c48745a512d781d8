// Package xlsx reads one worksheet of an Excel workbook as raw text cells.
package xlsx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when the workbook has no sheet with the
// requested name.
var ErrSheetNotFound = errors.New("sheet not found")

// Sheet is the content of a single worksheet. Rows may be ragged: trailing
// empty cells are not materialized.
type Sheet struct {
	Name string
	Rows [][]string
	// Date1904 reports whether serial dates count from 1904-01-01 rather
	// than 1899-12-30.
	Date1904 bool
}

// Read opens path and returns every row of sheet. Cell values are returned
// unformatted (RawCellValue), so dates arrive as Excel serial numbers and
// numbers without display rounding.
func Read(path, sheet string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, sheet, strings.Join(f.GetSheetList(), ", "))
	}
	name := f.GetSheetName(idx)

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	out := &Sheet{Name: name, Rows: rows}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		out.Date1904 = *props.Date1904
	}
	return out, nil
}
