// Package chunk splits an ordered batch into delivery-sized groups.
package chunk

import "slices"

// MaxGroupSize is the largest group the messaging platform accepts in a
// single media-group send.
const MaxGroupSize = 10

// Split returns consecutive groups of at most maxGroupSize elements.
// Concatenating the groups reproduces items exactly; an empty input yields
// no groups. Split panics if maxGroupSize is less than 1.
func Split[T any](items []T, maxGroupSize int) [][]T {
	if len(items) == 0 {
		return nil
	}
	groups := make([][]T, 0, (len(items)+maxGroupSize-1)/max(maxGroupSize, 1))
	for g := range slices.Chunk(items, maxGroupSize) {
		groups = append(groups, g)
	}
	return groups
}
