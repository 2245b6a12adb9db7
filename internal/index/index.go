// Package index filters the loaded photo records by year and derives the
// year list and bounds of the visible set.
package index

import (
	"slices"

	"github.com/phototrip/phototrip/internal/geo"
	"github.com/phototrip/phototrip/pkg/core"
)

// AllYears is the empty filter: every record passes.
const AllYears = ""

// Result is the outcome of one rebuild.
type Result struct {
	Visible []core.PhotoRecord
	Years   []string
	Bounds  geo.Bounds
}

// Rebuild filters records by year. With AllYears every record passes,
// including those without a timestamp; otherwise only records whose YearKey
// equals year pass. Years is computed over the whole batch and sorted.
// Bounds cover every visible record that has a marker position.
// records is never modified.
func Rebuild(records []core.PhotoRecord, year string) Result {
	res := Result{
		Visible: make([]core.PhotoRecord, 0, len(records)),
		Years:   Years(records),
	}

	for _, r := range records {
		if year != AllYears && r.YearKey != year {
			continue
		}
		res.Visible = append(res.Visible, r)
		if pos, ok := r.MarkerPosition(); ok {
			res.Bounds = res.Bounds.Extend(pos)
		}
	}
	return res
}

// Years returns the distinct year keys of records in ascending order.
func Years(records []core.PhotoRecord) []string {
	seen := make(map[string]struct{})
	years := []string{}
	for _, r := range records {
		if r.YearKey == "" {
			continue
		}
		if _, ok := seen[r.YearKey]; ok {
			continue
		}
		seen[r.YearKey] = struct{}{}
		years = append(years, r.YearKey)
	}
	slices.Sort(years)
	return years
}
