// Package locker provides the advisory locks serializing ledger writes on
// overlapping sets of entities.
package locker

import (
	"sort"
)

// normalize returns the sorted unique keys, acquiring keys in a single global
// order is what keeps two overlapping lockers from deadlocking.
func normalize(keys []string) []string {
	ret := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, v := range keys {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		ret = append(ret, v)
	}
	sort.Strings(ret)

	return ret
}
