package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/sales"
)

// Rejection reasons. Each rejected row carries exactly one.
const (
	ReasonMissingID     = "missing id"
	ReasonDuplicateID   = "duplicate id"
	ReasonInvalidDate   = "invalid date"
	ReasonMissingText   = "missing text field"
	ReasonInvalidQty    = "invalid qty"
	ReasonNegativeQty   = "negative qty"
	ReasonInvalidPrice  = "invalid price"
	ReasonNegativePrice = "negative price"
	ReasonOutOfRange    = "value out of range"
)

// dateLayouts are tried in order for textual dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
}

// maxSerialDate is 9999-12-31 in the 1900 date system.
const maxSerialDate = 2958465

// maxMoney bounds prices to what numeric(18,2) can hold.
var maxMoney = decimal.New(1, 16)

// rowError is a per-row validation failure.
type rowError struct {
	reason string
	detail string
}

func (e *rowError) Error() string {
	if e.detail == "" {
		return e.reason
	}
	return e.reason + ": " + e.detail
}

func reject(reason, format string, args ...any) *rowError {
	return &rowError{reason: reason, detail: fmt.Sprintf(format, args...)}
}

// parseDate accepts an Excel serial number or one of dateLayouts and returns
// the calendar date at UTC midnight.
func parseDate(raw string, date1904 bool) (time.Time, *rowError) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, reject(ReasonInvalidDate, "empty")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f <= 0 || f > maxSerialDate || math.IsNaN(f) {
			return time.Time{}, reject(ReasonInvalidDate, "serial %q out of range", s)
		}
		t, err := excelize.ExcelDateToTime(f, date1904)
		if err != nil {
			return time.Time{}, reject(ReasonInvalidDate, "serial %q: %v", s, err)
		}
		return midnight(t), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), nil
		}
	}
	return time.Time{}, reject(ReasonInvalidDate, "%q", s)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseQty accepts integers and decimals with a zero fraction ("33.0").
func parseQty(raw string) (int64, *rowError) {
	s := strings.TrimSpace(raw)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, reject(ReasonInvalidQty, "%q", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, reject(ReasonInvalidQty, "%q is not an integer", s)
	}
	if d.IsNegative() {
		return 0, reject(ReasonNegativeQty, "%s", s)
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, reject(ReasonOutOfRange, "qty %s", s)
	}
	return d.IntPart(), nil
}

// parseMoney parses a non-negative price rounded to sales.MoneyScale places.
func parseMoney(field, raw string) (decimal.Decimal, *rowError) {
	s := strings.TrimSpace(raw)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, reject(ReasonInvalidPrice, "%s %q", field, s)
	}
	if d.IsNegative() {
		return decimal.Zero, reject(ReasonNegativePrice, "%s %s", field, s)
	}
	d = d.Round(sales.MoneyScale)
	if d.GreaterThanOrEqual(maxMoney) {
		return decimal.Zero, reject(ReasonOutOfRange, "%s %s", field, s)
	}
	return d, nil
}
