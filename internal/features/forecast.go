package features

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// ForecastSpec selects the lag depth and rolling windows of the monthly
// feature set.
type ForecastSpec struct {
	MaxLag  int
	Windows []int
}

// DefaultForecastSpec uses lags 1..6 and windows of 2, 3 and 6 months.
func DefaultForecastSpec() ForecastSpec {
	return ForecastSpec{MaxLag: 6, Windows: []int{2, 3, 6}}
}

// Validate rejects non-positive lags and windows.
func (s ForecastSpec) Validate() error {
	if s.MaxLag <= 0 {
		return fmt.Errorf("max lag %d: %w", s.MaxLag, model.ErrInvalidConfiguration)
	}
	for _, w := range s.Windows {
		if w <= 0 {
			return fmt.Errorf("rolling window %d: %w", w, model.ErrInvalidConfiguration)
		}
	}
	return nil
}

// Lookback is the number of leading months that cannot carry a complete
// feature row.
func (s ForecastSpec) Lookback() int {
	// mom_growth_lag1 reaches back two months.
	lb := max(s.MaxLag, 2)
	for _, w := range s.Windows {
		lb = max(lb, w-1)
	}
	return lb
}

// Names returns the feature columns in declaration order.
func (s ForecastSpec) Names() []string {
	names := []string{
		"avg_amount", "std_amount", "max_amount", "min_amount",
		"year", "month", "quarter", "is_q4", "is_year_start", "is_year_end",
	}
	for k := 1; k <= s.MaxLag; k++ {
		names = append(names, fmt.Sprintf("lag_%d", k))
	}
	for _, w := range s.Windows {
		for _, stat := range []string{"mean", "std", "max", "min"} {
			names = append(names, fmt.Sprintf("rolling_%s_%d", stat, w))
		}
	}
	return append(names, "mom_growth", "mom_growth_lag1", "avg_txn_lag1", "txn_count_lag1")
}

// ForecastFrame is the monthly feature matrix with one target per row:
// the total of the row's own month.
type ForecastFrame struct {
	Frame
	Targets []float64
	Months  []time.Time
}

// Last returns the most recent feature row, used to forecast the month
// after it.
func (f ForecastFrame) Last() ([]float64, time.Time, bool) {
	if len(f.Rows) == 0 {
		return nil, time.Time{}, false
	}
	i := len(f.Rows) - 1
	return f.Rows[i], f.Months[i], true
}

// BuildForecastFeatures derives calendar, lag, rolling, growth and lagged
// size features for every bucket whose full lookback is available. Buckets
// must be ordered by month; months missing from the ledger are not filled.
func BuildForecastFeatures(buckets []model.MonthlyBucket, spec ForecastSpec) (ForecastFrame, error) {
	if err := spec.Validate(); err != nil {
		return ForecastFrame{}, err
	}
	out := ForecastFrame{Frame: Frame{Names: spec.Names()}}
	totals := make([]float64, len(buckets))
	for i, b := range buckets {
		totals[i] = b.Total
	}

	for t := spec.Lookback(); t < len(buckets); t++ {
		b := buckets[t]
		row := make([]float64, 0, len(out.Names))

		std := b.Std
		if b.Count < 2 || math.IsNaN(std) {
			std = 0
		}
		row = append(row, b.Mean, std, b.Max, b.Min)

		m := int(b.Month.Month())
		row = append(row,
			float64(b.Month.Year()),
			float64(m),
			float64((m-1)/3+1),
			boolFloat(m >= 10),
			boolFloat(m <= 2),
			boolFloat(m >= 11),
		)

		for k := 1; k <= spec.MaxLag; k++ {
			row = append(row, totals[t-k])
		}
		for _, w := range spec.Windows {
			window := totals[t-w+1 : t+1]
			row = append(row, windowStats(window)...)
		}

		growth := growthRate(totals[t], totals[t-1])
		prevGrowth := growthRate(totals[t-1], totals[t-2])
		prev := buckets[t-1]
		row = append(row, growth, prevGrowth, prev.Mean, float64(prev.Count))

		out.Rows = append(out.Rows, row)
		out.Targets = append(out.Targets, b.Total)
		out.Months = append(out.Months, b.Month)
	}
	return out, nil
}

// windowStats returns mean, sample std, max and min of w.
func windowStats(w []float64) []float64 {
	lo, hi := floats.Min(w), floats.Max(w)
	if len(w) < 2 {
		return []float64{w[0], 0, hi, lo}
	}
	mean, std := stat.MeanStdDev(w, nil)
	return []float64{mean, std, hi, lo}
}

func growthRate(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
