package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Linear is an ordinary least squares (Alpha == 0) or ridge (Alpha > 0)
// regressor with an unpenalized intercept. Both are solved through the SVD
// of the centered design matrix, which gives the minimum-norm solution when
// there are more features than rows.
type Linear struct {
	Alpha     float64   `json:"alpha"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// NewLinear returns an unregularized least squares regressor.
func NewLinear() *Linear { return &Linear{} }

// NewRidge returns an L2-regularized regressor.
func NewRidge(alpha float64) *Linear { return &Linear{Alpha: alpha} }

// Kind implements Regressor.
func (l *Linear) Kind() string { return kindLinear }

// Fit implements Regressor.
func (l *Linear) Fit(X [][]float64, y []float64) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	if l.Alpha < 0 || math.IsNaN(l.Alpha) {
		return fmt.Errorf("ridge alpha %v must be non-negative", l.Alpha)
	}
	n, p := len(X), len(X[0])

	xMean := make([]float64, p)
	for _, row := range X {
		for j, v := range row {
			xMean[j] += v
		}
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}
	yMean := sum(y) / float64(n)

	a := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i, row := range X {
		for j, v := range row {
			a.Set(i, j, v-xMean[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return fmt.Errorf("linear fit: SVD did not converge")
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	cutoff := 0.0
	if len(s) > 0 {
		cutoff = s[0] * float64(max(n, p)) * 2.220446049250313e-16
	}
	uty := mat.NewVecDense(len(s), nil)
	uty.MulVec(u.T(), yc)
	for i, sv := range s {
		var d float64
		switch {
		case sv <= cutoff:
			d = 0
		default:
			d = sv / (sv*sv + l.Alpha)
		}
		uty.SetVec(i, uty.AtVec(i)*d)
	}
	beta := mat.NewVecDense(p, nil)
	beta.MulVec(&v, uty)

	l.Coef = make([]float64, p)
	l.Intercept = yMean
	for j := 0; j < p; j++ {
		l.Coef[j] = beta.AtVec(j)
		l.Intercept -= xMean[j] * l.Coef[j]
	}
	return nil
}

// Predict implements Regressor.
func (l *Linear) Predict(x []float64) float64 {
	out := l.Intercept
	for j, c := range l.Coef {
		out += c * x[j]
	}
	return out
}
