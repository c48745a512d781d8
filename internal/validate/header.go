package validate

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/thatsaphon2745/food-sales-pipeline/internal/sales"
)

// requiredHeaders maps each record column to the header text of the export.
var requiredHeaders = []struct {
	column string
	header string
}{
	{sales.ColID, "ID"},
	{sales.ColDate, "Date"},
	{sales.ColRegion, "Region"},
	{sales.ColCity, "City"},
	{sales.ColCategory, "Category"},
	{sales.ColProduct, "Product"},
	{sales.ColQty, "Qty"},
	{sales.ColUnitPrice, "UnitPrice"},
	{sales.ColTotalPrice, "TotalPrice"},
}

// normalizeHeader makes header cells comparable:
//  1. strip a leading BOM and surrounding whitespace
//  2. strip accents (NFD → remove Mn → NFC)
//  3. case-fold
func normalizeHeader(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
		cases.Fold(),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// columnIndex locates every required column in the header row. Extra
// columns are ignored; when a header repeats, the first one wins.
func columnIndex(header []string) (map[string]int, error) {
	seen := make(map[string]int, len(header))
	for i, h := range header {
		k := normalizeHeader(h)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; !dup {
			seen[k] = i
		}
	}

	idx := make(map[string]int, len(requiredHeaders))
	var missing []string
	for _, rh := range requiredHeaders {
		i, ok := seen[normalizeHeader(rh.header)]
		if !ok {
			missing = append(missing, rh.header)
			continue
		}
		idx[rh.column] = i
	}
	if len(missing) > 0 {
		found := make([]string, 0, len(header))
		for _, h := range header {
			if s := strings.TrimSpace(h); s != "" {
				found = append(found, s)
			}
		}
		return nil, fmt.Errorf("%w: %s. Found: %s", ErrMissingColumns, strings.Join(missing, ", "), strings.Join(found, ", "))
	}
	return idx, nil
}
