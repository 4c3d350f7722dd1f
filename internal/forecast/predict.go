package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/theirongolddev/ledgerscope/internal/features"
	"github.com/theirongolddev/ledgerscope/internal/model"
)

// Predict forecasts the month after the last row of ff. totals is the full
// monthly total series used for the trend label.
func Predict(b *Bundle, ff features.ForecastFrame, totals []float64) (model.Forecast, error) {
	row, month, ok := ff.Last()
	if !ok {
		return model.Forecast{}, fmt.Errorf("no feature rows to forecast from: %w", model.ErrInsufficientData)
	}
	preds, err := b.Predict(row)
	if err != nil {
		return model.Forecast{}, err
	}

	ordered := make([]float64, 0, len(preds))
	for _, name := range model.ForecastModels {
		if p, ok := preds[name]; ok {
			ordered = append(ordered, p)
		}
	}

	return model.Forecast{
		Month:       month.AddDate(0, 1, 0).Format("2006-01"),
		Predictions: preds,
		Ensemble:    b.Blend(preds),
		Confidence:  Confidence(ordered),
		Trend:       Trend(totals),
		BestModel:   b.BestModel,
	}, nil
}

// Confidence is 100 minus the coefficient of variation, in percent, of the
// per-model predictions, clamped to [0, 100]. A zero mean gives 0.
func Confidence(preds []float64) float64 {
	if len(preds) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(preds, nil)
	if mean <= 0 {
		return 0
	}
	return math.Max(0, math.Min(100, 100-100*std/mean))
}

// Trend compares the mean of the last three monthly totals with the three
// before them. With fewer than six months the two windows coincide.
func Trend(totals []float64) string {
	n := len(totals)
	if n < 3 {
		return model.TrendInsufficientData
	}
	recent := stat.Mean(totals[n-3:], nil)
	older := recent
	if n >= 6 {
		older = stat.Mean(totals[n-6:n-3], nil)
	}
	switch {
	case recent > older*1.1:
		return model.TrendIncreasing
	case recent < older*0.9:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}
