package ml

import (
	"math"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// MSE is the mean squared error between truth and prediction.
func MSE(y, pred []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	var s float64
	for i := range y {
		d := y[i] - pred[i]
		s += d * d
	}
	return s / float64(len(y))
}

// RMSE is the root of MSE.
func RMSE(y, pred []float64) float64 {
	return math.Sqrt(MSE(y, pred))
}

// R2 is the coefficient of determination. A constant truth vector scores 1
// when predicted exactly and 0 otherwise.
func R2(y, pred []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	mean := sum(y) / float64(len(y))
	var ssRes, ssTot float64
	for i := range y {
		ssRes += (y[i] - pred[i]) * (y[i] - pred[i])
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// MAPE is the mean absolute percentage error, in percent.
func MAPE(y, pred []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	const eps = 2.220446049250313e-16
	var s float64
	for i := range y {
		s += math.Abs(y[i]-pred[i]) / math.Max(math.Abs(y[i]), eps)
	}
	return s / float64(len(y)) * 100
}

// Evaluate computes RMSE, R² and MAPE in one pass over the inputs.
func Evaluate(y, pred []float64) model.EvalMetrics {
	return model.EvalMetrics{
		RMSE: RMSE(y, pred),
		R2:   R2(y, pred),
		MAPE: MAPE(y, pred),
	}
}
