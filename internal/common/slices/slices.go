package slices

import (
	"fmt"

	goslices "golang.org/x/exp/slices"
)

// Partition partitions the elements of s into n non-overlapping slices,
// such that some slices have len(s)/n+1 items and some len(s)/n items.
// Ordering is preserved, such that Flatten(Partition(s)) is equal to s.
func Partition[S ~[]E, E any](s S, n int) []S {
	if n < 1 {
		panic(fmt.Sprintf("n is %d but must be at least 1", n))
	}
	k := len(s) - (len(s)/n)*n
	rv := make([]S, n)
	i := 0
	for j := 0; j < k; j++ {
		rv[j] = goslices.Clone(s[i : i+len(s)/n+1])
		i += len(s)/n + 1
	}
	for j := k; j < n; j++ {
		rv[j] = goslices.Clone(s[i : i+len(s)/n])
		i += len(s) / n
	}
	return rv
}

// Flatten merges a slice of slices into a single slice.
func Flatten[S ~[]E, E any](s []S) S {
	n := 0
	allNil := true
	for _, si := range s {
		n += len(si)
		allNil = allNil && si == nil
	}
	if allNil {
		return nil
	}
	rv := make(S, 0, n)
	for _, si := range s {
		rv = append(rv, si...)
	}
	return rv
}

// Map returns a new slice containing f(e) for each element e of s.
func Map[S ~[]E, E any, V any](s S, f func(E) V) []V {
	if s == nil {
		return nil
	}
	rv := make([]V, len(s))
	for i, e := range s {
		rv[i] = f(e)
	}
	return rv
}

// Unique returns a copy of s with duplicate elements removed, keeping only the first occurrence.
func Unique[S ~[]E, E comparable](s S) S {
	if s == nil {
		return nil
	}
	rv := make(S, 0)
	seen := make(map[E]bool)
	for _, v := range s {
		if !seen[v] {
			rv = append(rv, v)
			seen[v] = true
		}
	}
	return rv
}

// IsStrictlyIncreasing returns true if every element of s is greater than the one before it.
// The empty slice is strictly increasing.
func IsStrictlyIncreasing[S ~[]E, E int | int64 | float64](s S) bool {
	for i := 1; i < len(s); i++ {
		if s[i] <= s[i-1] {
			return false
		}
	}
	return true
}

// Fill returns a slice of length n with every element set to v.
func Fill[E any](v E, n int) []E {
	rv := make([]E, n)
	for i := range rv {
		rv[i] = v
	}
	return rv
}

// Zeros returns a slice of length n filled with zeros.
func Zeros[E ~int | ~int64 | ~float32 | ~float64](n int) []E {
	return make([]E, n)
}

// Ones returns a slice of length n filled with ones.
func Ones[E ~int | ~int64 | ~float32 | ~float64](n int) []E {
	return Fill(E(1), n)
}
