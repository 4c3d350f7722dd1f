package ml

import (
	"fmt"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// Fold is one expanding-window split: rows [0, TrainEnd) train, rows
// [TrainEnd, ValEnd) validate. Validation rows are always later in time.
type Fold struct {
	TrainEnd int
	ValEnd   int
}

// TimeSeriesSplit partitions n chronologically ordered rows into k folds
// with equal validation blocks of n/(k+1) rows.
func TimeSeriesSplit(n, k int) ([]Fold, error) {
	if k < 1 {
		return nil, fmt.Errorf("time series split: %d folds: %w", k, model.ErrInvalidConfiguration)
	}
	if n < k+1 {
		return nil, fmt.Errorf("time series split: %d rows for %d folds: %w", n, k, model.ErrInsufficientData)
	}
	size := n / (k + 1)
	folds := make([]Fold, k)
	for i := 0; i < k; i++ {
		start := n - (k-i)*size
		folds[i] = Fold{TrainEnd: start, ValEnd: start + size}
	}
	return folds, nil
}

// CrossValidate fits a fresh regressor per fold and returns the mean
// validation MSE.
func CrossValidate(newModel func() Regressor, X [][]float64, y []float64, folds []Fold) (float64, error) {
	if len(folds) == 0 {
		return 0, fmt.Errorf("cross validate: no folds")
	}
	var total float64
	for _, f := range folds {
		r := newModel()
		if err := r.Fit(X[:f.TrainEnd], y[:f.TrainEnd]); err != nil {
			return 0, err
		}
		pred := PredictAll(r, X[f.TrainEnd:f.ValEnd])
		total += MSE(y[f.TrainEnd:f.ValEnd], pred)
	}
	return total / float64(len(folds)), nil
}
