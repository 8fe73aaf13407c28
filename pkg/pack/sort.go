package pack

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/cartopack/cartopack/pkg/errors"
)

// SortMode controls the order in which circles are fed to the packer.
// Placement is order-sensitive, so the mode is part of a layout's identity.
type SortMode string

const (
	// SortDefault keeps the input order.
	SortDefault SortMode = "default"

	// SortAscending orders by value, smallest first.
	SortAscending SortMode = "ascending"

	// SortDescending orders by value, largest first.
	SortDescending SortMode = "descending"

	// SortRandom shuffles using an injected random source.
	SortRandom SortMode = "random"
)

// ParseSortMode parses a sort mode string, case-insensitively.
// The empty string means SortDefault.
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(SortDefault):
		return SortDefault, nil
	case string(SortAscending), "asc":
		return SortAscending, nil
	case string(SortDescending), "desc":
		return SortDescending, nil
	case string(SortRandom):
		return SortRandom, nil
	}
	return "", errors.New(errors.ErrCodeInvalidSortMode, "unknown sort mode %q", s)
}

// NewRand creates the seeded random source used for SortRandom.
// The same seed always yields the same shuffle.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// Order returns a permutation of 0..len(values)-1 arranging the values
// according to mode. Ascending and descending sorts are stable, so equal
// values keep their input order. SortRandom requires a non-nil rng.
func Order(values []float64, mode SortMode, rng *rand.Rand) ([]int, error) {
	perm := make([]int, len(values))
	for i := range perm {
		perm[i] = i
	}

	switch mode {
	case SortDefault:
	case SortAscending:
		sort.SliceStable(perm, func(a, b int) bool {
			return values[perm[a]] < values[perm[b]]
		})
	case SortDescending:
		sort.SliceStable(perm, func(a, b int) bool {
			return values[perm[a]] > values[perm[b]]
		})
	case SortRandom:
		if rng == nil {
			return nil, errors.New(errors.ErrCodeInvalidSortMode, "random sort requires a seeded random source")
		}
		rng.Shuffle(len(perm), func(a, b int) {
			perm[a], perm[b] = perm[b], perm[a]
		})
	default:
		return nil, errors.New(errors.ErrCodeInvalidSortMode, "unknown sort mode %q", mode)
	}

	return perm, nil
}
