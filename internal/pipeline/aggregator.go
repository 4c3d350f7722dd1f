// Package pipeline orchestrates ledger loading, monthly aggregation and the
// forecast and fraud runs.
package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// AggregateMonthly groups txns by calendar month and returns one bucket per
// month present, ordered by month ascending. Input order does not matter.
func AggregateMonthly(txns []model.Transaction) ([]model.MonthlyBucket, error) {
	if len(txns) == 0 {
		return nil, fmt.Errorf("aggregating months: %w", model.ErrInsufficientData)
	}

	amounts := make(map[time.Time][]float64)
	for _, t := range txns {
		ts := t.Timestamp
		month := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
		amounts[month] = append(amounts[month], t.AmountFloat())
	}

	buckets := make([]model.MonthlyBucket, 0, len(amounts))
	for month, vals := range amounts {
		b := model.MonthlyBucket{
			Month: month,
			Total: floats.Sum(vals),
			Count: len(vals),
			Max:   floats.Max(vals),
			Min:   floats.Min(vals),
			Std:   math.NaN(),
		}
		if len(vals) >= 2 {
			b.Mean, b.Std = stat.MeanStdDev(vals, nil)
		} else {
			b.Mean = vals[0]
		}
		buckets = append(buckets, b)
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month.Before(buckets[j].Month)
	})
	return buckets, nil
}

// MonthlyTotals returns the Total of each bucket in order.
func MonthlyTotals(buckets []model.MonthlyBucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Total
	}
	return out
}

// FilterByTime returns transactions within [since, until). A zero bound is
// open.
func FilterByTime(txns []model.Transaction, since, until time.Time) []model.Transaction {
	var result []model.Transaction
	for _, t := range txns {
		if !since.IsZero() && t.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && !t.Timestamp.Before(until) {
			continue
		}
		result = append(result, t)
	}
	return result
}

// SortChronological orders txns by timestamp, then ID, in place.
func SortChronological(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if txns[i].Timestamp.Equal(txns[j].Timestamp) {
			return txns[i].ID < txns[j].ID
		}
		return txns[i].Timestamp.Before(txns[j].Timestamp)
	})
}
