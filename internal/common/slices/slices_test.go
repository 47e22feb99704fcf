package slices

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	toString := func(val int) string { return fmt.Sprintf("%d", val) }
	input := []int{1, 3, 5, 7, 9}
	expectedOutput := []string{"1", "3", "5", "7", "9"}

	output := Map(input, toString)
	assert.Equal(t, expectedOutput, output)
}

func TestMapEmptyList(t *testing.T) {
	toString := func(val int) string { return fmt.Sprintf("%d", val) }
	input := []int{}
	expectedOutput := []string{}

	output := Map(input, toString)
	assert.Equal(t, expectedOutput, output)
}

func TestPartitionFlatten(t *testing.T) {
	tests := map[string]struct {
		s        []int
		n        int
		expected [][]int
	}{
		"even": {
			s:        []int{1, 2, 3, 4},
			n:        2,
			expected: [][]int{{1, 2}, {3, 4}},
		},
		"uneven": {
			s:        []int{1, 2, 3, 4, 5},
			n:        3,
			expected: [][]int{{1, 2}, {3, 4}, {5}},
		},
		"more partitions than elements": {
			s:        []int{1},
			n:        3,
			expected: [][]int{{1}, {}, {}},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			actual := Partition(tc.s, tc.n)
			assert.Equal(t, tc.expected, actual)
			assert.Equal(t, tc.s, Flatten(actual))
		})
	}
}

func TestPartitionPanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { Partition([]int{1}, 0) })
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []int{3, 1, 2}, Unique([]int{3, 1, 3, 2, 1}))
	assert.Nil(t, Unique[[]int](nil))
}

func TestIsStrictlyIncreasing(t *testing.T) {
	tests := map[string]struct {
		s        []int
		expected bool
	}{
		"empty":      {s: nil, expected: true},
		"single":     {s: []int{4}, expected: true},
		"increasing": {s: []int{0, 2, 5}, expected: true},
		"duplicate":  {s: []int{0, 2, 2}, expected: false},
		"decreasing": {s: []int{3, 1}, expected: false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsStrictlyIncreasing(tc.s))
		})
	}
}

func TestFill(t *testing.T) {
	tests := map[string]struct {
		actual   []float64
		expected []float64
	}{
		"ones":  {actual: Ones[float64](3), expected: []float64{1, 1, 1}},
		"zeros": {actual: Zeros[float64](2), expected: []float64{0, 0}},
		"fill":  {actual: Fill(0.5, 2), expected: []float64{0.5, 0.5}},
		"empty": {actual: Fill(0.5, 0), expected: []float64{}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.actual)
		})
	}
	assert.Equal(t, []string{"a", "a"}, Fill("a", 2))
}
