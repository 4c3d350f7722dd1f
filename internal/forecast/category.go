package forecast

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// minCategoryMonths is the history a category needs before it is forecast.
const minCategoryMonths = 3

// ByCategory forecasts each category's next month as the moving average of
// its last six monthly totals. Categories with fewer than three months are
// skipped. The result is sorted by predicted amount, largest first, and cut
// to topN when topN > 0.
func ByCategory(txns []model.Transaction, topN int) []model.CategoryForecast {
	type catAcc struct {
		months map[string]float64
		sum    float64
		count  int
	}
	acc := make(map[string]*catAcc)
	for _, t := range txns {
		a, ok := acc[t.Category]
		if !ok {
			a = &catAcc{months: make(map[string]float64)}
			acc[t.Category] = a
		}
		amt := t.AmountFloat()
		a.months[t.Timestamp.Format("2006-01")] += amt
		a.sum += amt
		a.count++
	}

	var out []model.CategoryForecast
	for cat, a := range acc {
		if len(a.months) < minCategoryMonths {
			continue
		}
		keys := make([]string, 0, len(a.months))
		for k := range a.months {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		series := make([]float64, len(keys))
		for i, k := range keys {
			series[i] = a.months[k]
		}

		n := len(series)
		recent := series[max(0, n-6):]
		avg, std := stat.MeanStdDev(recent, nil)

		conf := 0.0
		if avg > 0 {
			conf = math.Max(0, 100-std/avg*100)
		}
		var delta float64
		if n >= 6 {
			delta = stat.Mean(series[n-3:], nil) - stat.Mean(series[n-6:n-3], nil)
		}
		trend := model.TrendStable
		switch {
		case delta > avg*0.1:
			trend = model.TrendIncreasing
		case delta < -avg*0.1:
			trend = model.TrendDecreasing
		}

		out = append(out, model.CategoryForecast{
			Category:         cat,
			PredictedAmount:  round2(avg),
			Confidence:       round2(conf),
			Trend:            trend,
			AvgTransaction:   round2(a.sum / float64(a.count)),
			TransactionCount: a.count,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PredictedAmount != out[j].PredictedAmount {
			return out[i].PredictedAmount > out[j].PredictedAmount
		}
		return out[i].Category < out[j].Category
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
