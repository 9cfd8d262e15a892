package corechecks

import (
	"cmp"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vksync/engine/validation/state"
)

// sortedQueries orders a query set by pool handle, then index, so reports
// come out deterministic.
func sortedQueries(set map[state.QueryObject]struct{}) []state.QueryObject {
	qs := maps.Keys(set)
	slices.SortFunc(qs, func(a, b state.QueryObject) int {
		if c := cmp.Compare(a.Pool.Handle().Handle, b.Pool.Handle().Handle); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})
	return qs
}
