// Package validate turns raw sheet rows into sales records. Structural
// problems (header row, missing columns) are fatal; problems with a single
// row reject that row and are reported in the Result.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/logging"
	"github.com/thatsaphon2745/food-sales-pipeline/internal/sales"
)

var (
	// ErrMissingColumns: the header row lacks one or more required columns.
	ErrMissingColumns = errors.New("missing columns")
	// ErrHeaderOutOfRange: the header row offset is beyond the sheet.
	ErrHeaderOutOfRange = errors.New("header row out of range")
	// ErrNoAcceptedRows: every data row was blank or rejected.
	ErrNoAcceptedRows = errors.New("no accepted rows")
)

// Rejection describes one rejected data row.
type Rejection struct {
	Line   int    // 1-based sheet row number
	ID     string // trimmed id cell, may be empty
	Reason string // one of the Reason* constants
	Detail string
	Raw    string // cells joined with ","
}

// Result is the outcome of validating one sheet.
type Result struct {
	Accepted []sales.Record
	Rejected []Rejection
	// Read counts non-blank data rows.
	Read int
}

// ReasonCounts groups rejections by reason.
func (r Result) ReasonCounts() map[string]int {
	out := make(map[string]int)
	for _, rj := range r.Rejected {
		out[rj.Reason]++
	}
	return out
}

// Validator validates sheet rows. The zero value is usable and logs nowhere.
type Validator struct {
	// Date1904 selects the 1904 date system for serial dates.
	Date1904 bool
	// MaxTextLen rejects text values longer than this many UTF-16 code
	// units. 0 means unbounded.
	MaxTextLen int
	Log        logrus.FieldLogger
}

// New returns a Validator that logs to log.
func New(log logrus.FieldLogger, date1904 bool) *Validator {
	return &Validator{Date1904: date1904, Log: log}
}

// Validate reads the header at rows[headerRow] (0-based) and validates every
// following row. Row-level failures never abort the run; a Result is returned
// alongside ErrNoAcceptedRows so callers can still report the rejections.
func (v *Validator) Validate(rows [][]string, headerRow int) (Result, error) {
	var res Result
	if headerRow < 0 || headerRow >= len(rows) {
		return res, fmt.Errorf("%w: header row %d, sheet has %d rows", ErrHeaderOutOfRange, headerRow, len(rows))
	}
	idx, err := columnIndex(rows[headerRow])
	if err != nil {
		return res, err
	}

	seen := make(map[xxh3.Uint128]struct{})
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		res.Read++

		rec, rerr := v.parseRow(row, idx)
		if rerr == nil {
			h := xxh3.HashString128(rec.ID)
			if _, dup := seen[h]; dup {
				rerr = &rowError{reason: ReasonDuplicateID, detail: fmt.Sprintf("%q", rec.ID)}
			} else {
				seen[h] = struct{}{}
			}
		}
		if rerr != nil {
			res.Rejected = append(res.Rejected, Rejection{
				Line:   i + 1,
				ID:     strings.TrimSpace(cell(row, idx[sales.ColID])),
				Reason: rerr.reason,
				Detail: rerr.detail,
				Raw:    strings.Join(row, ","),
			})
			continue
		}
		res.Accepted = append(res.Accepted, rec)
	}

	v.report(res)
	if len(res.Accepted) == 0 {
		return res, fmt.Errorf("%w: %d rows read, %d rejected", ErrNoAcceptedRows, res.Read, len(res.Rejected))
	}
	return res, nil
}

func (v *Validator) parseRow(row []string, idx map[string]int) (sales.Record, *rowError) {
	var rec sales.Record

	rec.ID = strings.TrimSpace(cell(row, idx[sales.ColID]))
	if rec.ID == "" {
		return rec, &rowError{reason: ReasonMissingID}
	}
	if rerr := v.checkLen(sales.ColID, rec.ID); rerr != nil {
		return rec, rerr
	}

	var rerr *rowError
	if rec.Date, rerr = parseDate(cell(row, idx[sales.ColDate]), v.Date1904); rerr != nil {
		return rec, rerr
	}

	for _, f := range []struct {
		col string
		dst *string
	}{
		{sales.ColRegion, &rec.Region},
		{sales.ColCity, &rec.City},
		{sales.ColCategory, &rec.Category},
		{sales.ColProduct, &rec.Product},
	} {
		s := cell(row, idx[f.col])
		if strings.TrimSpace(s) == "" {
			return rec, &rowError{reason: ReasonMissingText, detail: f.col}
		}
		if rerr := v.checkLen(f.col, s); rerr != nil {
			return rec, rerr
		}
		*f.dst = s
	}

	if rec.Qty, rerr = parseQty(cell(row, idx[sales.ColQty])); rerr != nil {
		return rec, rerr
	}
	if rec.UnitPrice, rerr = parseMoney(sales.ColUnitPrice, cell(row, idx[sales.ColUnitPrice])); rerr != nil {
		return rec, rerr
	}
	if rec.TotalPrice, rerr = parseMoney(sales.ColTotalPrice, cell(row, idx[sales.ColTotalPrice])); rerr != nil {
		return rec, rerr
	}
	return rec, nil
}

func (v *Validator) checkLen(col, s string) *rowError {
	if v.MaxTextLen <= 0 {
		return nil
	}
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	if n > v.MaxTextLen {
		return &rowError{reason: ReasonOutOfRange, detail: fmt.Sprintf("%s is %d long, limit %d", col, n, v.MaxTextLen)}
	}
	return nil
}

func (v *Validator) report(res Result) {
	if v.Log == nil {
		return
	}
	log := logging.Phase(v.Log, logging.PhaseRead)
	log.WithFields(logrus.Fields{
		"read":     res.Read,
		"accepted": len(res.Accepted),
		"rejected": len(res.Rejected),
	}).Info("rows validated")

	if len(res.Rejected) == 0 {
		return
	}
	counts := res.ReasonCounts()
	if neg := counts[ReasonNegativeQty] + counts[ReasonNegativePrice]; neg > 0 {
		log.Warnf("filtered %d rows with negative values", neg)
	}
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s=%d", r, counts[r])
	}
	log.WithField("reasons", strings.Join(parts, ", ")).Warnf("rejected %d rows", len(res.Rejected))
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
