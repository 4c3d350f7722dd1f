package forecast

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ledgerscope/internal/config"
	"github.com/theirongolddev/ledgerscope/internal/features"
	"github.com/theirongolddev/ledgerscope/internal/model"
)

func series(totals []float64) []model.MonthlyBucket {
	start := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.MonthlyBucket, len(totals))
	for i, total := range totals {
		out[i] = model.MonthlyBucket{
			Month: start.AddDate(0, i, 0),
			Total: total,
			Mean:  total / 10,
			Count: 10,
			Std:   total / 50,
			Max:   total / 5,
			Min:   total / 20,
		}
	}
	return out
}

func seasonal(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 2000 + 40*float64(i) + 300*math.Sin(float64(i)*math.Pi/6)
	}
	return out
}

func testOptions(tune bool) Options {
	opts := OptionsFromConfig(config.DefaultConfig())
	opts.Tune = tune
	opts.SearchIterations = 4
	return opts
}

func frameFor(t *testing.T, totals []float64) features.ForecastFrame {
	t.Helper()
	ff, err := features.BuildForecastFeatures(series(totals), features.DefaultForecastSpec())
	require.NoError(t, err)
	return ff
}

func TestTrainPredict_ConstantSeries(t *testing.T) {
	totals := make([]float64, 12)
	for i := range totals {
		totals[i] = 1000
	}
	ff := frameFor(t, totals)

	for _, tune := range []bool{false, true} {
		res, err := Train(ff, testOptions(tune))
		require.NoError(t, err)

		fc, err := Predict(res.Bundle, ff, totals)
		require.NoError(t, err)
		assert.InDelta(t, 1000, fc.Ensemble, 1e-6)
		assert.InDelta(t, 100, fc.Confidence, 1e-6)
		assert.Equal(t, model.TrendStable, fc.Trend)
		assert.Equal(t, "2023-01", fc.Month)
		for name, p := range fc.Predictions {
			assert.InDelta(t, 1000, p, 1e-6, name)
		}
	}
}

func TestTrain_WeightsSumToOne(t *testing.T) {
	ff := frameFor(t, seasonal(24))
	for _, xgb := range []bool{true, false} {
		opts := testOptions(false)
		opts.EnableXGBoost = xgb
		res, err := Train(ff, opts)
		require.NoError(t, err)

		var sum float64
		for _, w := range res.Bundle.Weights {
			sum += w
		}
		assert.InDelta(t, 1, sum, 1e-9)
		_, hasXGB := res.Bundle.Models[model.ModelXGBoost]
		assert.Equal(t, xgb, hasXGB)
		if !xgb {
			assert.InDelta(t, 0.375, res.Bundle.Weights[model.ModelRandomForest], 1e-9)
		}
	}
}

func TestTrain_ReportsMetricsAndBestModel(t *testing.T) {
	ff := frameFor(t, seasonal(24))
	res, err := Train(ff, testOptions(true))
	require.NoError(t, err)

	for _, name := range append(model.ForecastModels, model.ModelEnsemble) {
		m, ok := res.Metrics[name]
		require.True(t, ok, name)
		assert.False(t, math.IsNaN(m.RMSE), name)
	}
	best := res.Metrics[res.Bundle.BestModel].RMSE
	for _, name := range model.ForecastModels {
		assert.LessOrEqual(t, best, res.Metrics[name].RMSE)
	}
	assert.Contains(t, res.Bundle.Params[model.ModelRidge], "alpha=")
}

func TestTrain_Deterministic(t *testing.T) {
	totals := seasonal(20)
	ff := frameFor(t, totals)
	a, err := Train(ff, testOptions(true))
	require.NoError(t, err)
	b, err := Train(ff, testOptions(true))
	require.NoError(t, err)

	fa, err := Predict(a.Bundle, ff, totals)
	require.NoError(t, err)
	fb, err := Predict(b.Bundle, ff, totals)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}

func TestBundle_RoundTrip(t *testing.T) {
	totals := seasonal(24)
	ff := frameFor(t, totals)
	res, err := Train(ff, testOptions(false))
	require.NoError(t, err)
	res.Bundle.Fingerprint = "abc"

	data, err := json.Marshal(res.Bundle)
	require.NoError(t, err)
	var loaded Bundle
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, "abc", loaded.Fingerprint)
	assert.Equal(t, res.Bundle.FeatureNames, loaded.FeatureNames)

	for _, row := range ff.Rows {
		want, err := res.Bundle.Predict(row)
		require.NoError(t, err)
		got, err := loaded.Predict(row)
		require.NoError(t, err)
		for name := range want {
			assert.InDelta(t, want[name], got[name], 1e-9, name)
		}
	}
}

func TestTrain_InsufficientRows(t *testing.T) {
	ff := frameFor(t, seasonal(11))
	_, err := Train(ff, testOptions(false))
	assert.True(t, errors.Is(err, model.ErrInsufficientData))
}

func TestTrain_InvalidOptions(t *testing.T) {
	ff := frameFor(t, seasonal(14))
	opts := testOptions(false)
	opts.Weights = config.EnsembleWeights{Linear: -1}
	_, err := Train(ff, opts)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))

	opts = testOptions(false)
	opts.TestFraction = 1
	_, err = Train(ff, opts)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
}

func TestBundle_Untrained(t *testing.T) {
	var b *Bundle
	_, err := b.Predict([]float64{1})
	assert.True(t, errors.Is(err, model.ErrUntrainedModel))

	_, err = (&Bundle{}).Predict(nil)
	assert.True(t, errors.Is(err, model.ErrUntrainedModel))
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 100.0, Confidence([]float64{500, 500, 500}))
	assert.Equal(t, 0.0, Confidence([]float64{0, 0}))
	assert.Equal(t, 0.0, Confidence(nil))
	assert.Equal(t, 0.0, Confidence([]float64{0, 0, 0, 1000}))
	// mean 100, population std 10
	assert.InDelta(t, 90, Confidence([]float64{90, 110}), 1e-9)
}

func TestTrend(t *testing.T) {
	tests := []struct {
		totals []float64
		want   string
	}{
		{[]float64{100, 100}, model.TrendInsufficientData},
		{[]float64{100, 200, 300}, model.TrendStable},
		{[]float64{100, 100, 100, 120, 120, 120}, model.TrendIncreasing},
		{[]float64{100, 100, 100, 80, 80, 80}, model.TrendDecreasing},
		{[]float64{100, 100, 100, 105, 105, 105}, model.TrendStable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Trend(tt.totals), "%v", tt.totals)
	}
}

func TestByCategory(t *testing.T) {
	var txns []model.Transaction
	add := func(cat string, month int, amount float64) {
		txns = append(txns, model.Transaction{
			ID:        int64(len(txns) + 1),
			Timestamp: time.Date(2024, time.Month(month), 10, 12, 0, 0, 0, time.UTC),
			Amount:    decimal.NewFromFloat(amount),
			Category:  cat,
		})
	}
	for m := 1; m <= 6; m++ {
		add("Rent", m, 1500)
		add("Food", m, 100*float64(m))
	}
	add("Gifts", 1, 80)
	add("Gifts", 2, 20)

	got := ByCategory(txns, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "Rent", got[0].Category)
	assert.Equal(t, 1500.0, got[0].PredictedAmount)
	assert.Equal(t, 100.0, got[0].Confidence)
	assert.Equal(t, model.TrendStable, got[0].Trend)

	food := got[1]
	assert.Equal(t, 350.0, food.PredictedAmount)
	assert.Equal(t, model.TrendIncreasing, food.Trend)
	assert.Equal(t, 6, food.TransactionCount)

	assert.Len(t, ByCategory(txns, 1), 1)
}
