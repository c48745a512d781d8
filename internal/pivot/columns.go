package pivot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/storage"
)

var (
	// ErrNoDimensionValues: the production table has no non-NULL dimension
	// value to pivot on.
	ErrNoDimensionValues = errors.New("no dimension values to pivot on")
	// ErrUnsafeLabel: a dimension value cannot be used as a column label.
	ErrUnsafeLabel = errors.New("unsafe column label")
)

// ColumnBuilder turns dimension values into pivot column expressions, one
// per value:
//
//	<money>(COALESCE(SUM(CASE WHEN <dim> = '<value>' THEN <measure> END), 0)) AS "<value>"
//
// Every value is quoted through the dialect, both as a literal and as a
// label, and labels are checked for collisions with each other and with the
// reserved names.
type ColumnBuilder struct {
	d         storage.Dialect
	dimension string
	measure   string

	taken  map[string]string // folded label -> original
	labels []string
	cols   []string
}

// NewColumnBuilder returns a builder that pivots measure over dimension.
// reserved names (the group-by column, the total column) can never be used
// as labels.
func NewColumnBuilder(d storage.Dialect, dimension, measure string, reserved ...string) *ColumnBuilder {
	b := &ColumnBuilder{
		d:         d,
		dimension: dimension,
		measure:   measure,
		taken:     make(map[string]string, len(reserved)),
	}
	for _, r := range reserved {
		b.taken[d.FoldIdent(r)] = r
	}
	return b
}

// Add validates label and appends its column expression.
func (b *ColumnBuilder) Add(label string) error {
	if err := checkLabel(b.d, label); err != nil {
		return err
	}
	folded := b.d.FoldIdent(label)
	if prev, ok := b.taken[folded]; ok {
		return fmt.Errorf("%w: %q collides with %q", ErrUnsafeLabel, label, prev)
	}
	b.taken[folded] = label

	cond := b.d.QuoteIdent(b.dimension) + " = " + b.d.QuoteLiteral(label)
	sum := "COALESCE(SUM(CASE WHEN " + cond + " THEN " + b.d.QuoteIdent(b.measure) + " END), 0)"
	b.cols = append(b.cols, b.d.Money(sum)+" AS "+b.d.QuoteIdent(label))
	b.labels = append(b.labels, label)
	return nil
}

// AddAll adds labels in order, stopping at the first error.
func (b *ColumnBuilder) AddAll(labels []string) error {
	for _, l := range labels {
		if err := b.Add(l); err != nil {
			return err
		}
	}
	return nil
}

// Columns returns the column expressions in the order added.
func (b *ColumnBuilder) Columns() []string { return b.cols }

// Labels returns the accepted labels in the order added.
func (b *ColumnBuilder) Labels() []string { return b.labels }

func checkLabel(d storage.Dialect, label string) error {
	if label == "" {
		return fmt.Errorf("%w: empty label", ErrUnsafeLabel)
	}
	if strings.ContainsRune(label, 0) {
		return fmt.Errorf("%w: %q contains a NUL byte", ErrUnsafeLabel, label)
	}
	if err := d.CheckIdent(label); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeLabel, err)
	}
	return nil
}
