package ml

import "math/rand"

// GridSize is the number of combinations of the given axis sizes.
func GridSize(sizes []int) int {
	total := 1
	for _, s := range sizes {
		total *= s
	}
	return total
}

// EnumerateGrid lists every combination of axis indices in nested-loop
// order: the last axis varies fastest.
func EnumerateGrid(sizes []int) [][]int {
	total := GridSize(sizes)
	out := make([][]int, total)
	for i := range out {
		out[i] = decodeGridIndex(i, sizes)
	}
	return out
}

// SampleGrid draws n distinct combinations uniformly without replacement.
// When the grid has at most n combinations all of them are returned in
// enumeration order.
func SampleGrid(sizes []int, n int, rng *rand.Rand) [][]int {
	total := GridSize(sizes)
	if total <= n {
		return EnumerateGrid(sizes)
	}
	perm := rng.Perm(total)[:n]
	out := make([][]int, n)
	for i, flat := range perm {
		out[i] = decodeGridIndex(flat, sizes)
	}
	return out
}

func decodeGridIndex(flat int, sizes []int) []int {
	choice := make([]int, len(sizes))
	for a := len(sizes) - 1; a >= 0; a-- {
		choice[a] = flat % sizes[a]
		flat /= sizes[a]
	}
	return choice
}
