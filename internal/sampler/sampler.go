// Package sampler draws deterministic row samples from a dataset.
package sampler

import (
	"math/rand"

	"github.com/KaramelBytes/profiloom/internal/dataset"
)

// DefaultSeed fixes the row selection so identical inputs give identical samples.
const DefaultSeed int64 = 42

const (
	minSize     = 100
	defaultSize = 1000
)

// Sample returns min(k, n) rows of ds. When k >= n the result is a copy of
// the full dataset in its original order; otherwise rows appear in draw order.
func Sample(ds *dataset.Dataset, k int, seed int64) *dataset.Dataset {
	n := ds.Len()
	if k <= 0 {
		return dataset.New(ds.Name, append([]string(nil), ds.Columns...), [][]string{})
	}
	if k >= n {
		return ds.Clone()
	}
	idx := rand.New(rand.NewSource(seed)).Perm(n)[:k]
	return ds.Subset(idx).Clone()
}

// Bounds returns the selectable sample size range for n rows. Datasets with
// fewer than 100 rows collapse to [n, n].
func Bounds(n int) (lo, hi int) {
	if n < 0 {
		n = 0
	}
	return min(minSize, n), n
}

// DefaultSize is the initial sample size for n rows.
func DefaultSize(n int) int {
	if n < 0 {
		return 0
	}
	return min(defaultSize, n)
}

// Clamp forces k into Bounds(n).
func Clamp(k, n int) int {
	lo, hi := Bounds(n)
	if k < lo {
		return lo
	}
	if k > hi {
		return hi
	}
	return k
}
