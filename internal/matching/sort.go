package matching

import (
	"sort"

	"github.com/iho/gorecon/internal/domain"
)

// SortRecords returns a stably ordered copy of the pool: date, then
// amount, then ID. Every stage sorts its input through this before any
// greedy consumption so identical inputs always yield identical output.
func SortRecords(recs []*domain.Record) []*domain.Record {
	out := make([]*domain.Record, len(recs))
	copy(out, recs)

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}

		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c < 0
		}

		return out[i].ID < out[j].ID
	})

	return out
}
