package ml

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

func popMeanStd(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(x, nil)
}

// PopStdDev is the population standard deviation (ddof 0).
func PopStdDev(x []float64) float64 {
	_, sd := popMeanStd(x)
	return sd
}

// Percentile returns the q-th percentile (0-100) of x using linear
// interpolation between closest ranks.
func Percentile(x []float64, q float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}
