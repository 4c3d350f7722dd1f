package fraud

import (
	"fmt"
	"math"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// Sub-score ceilings.
const (
	MaxAnomalyScore   = 100
	MaxAmountScore    = 30
	MaxTimeScore      = 20
	MaxVelocityScore  = 15
	MaxDeviationScore = 25
	MaxMerchantScore  = 10
)

// FusionWeights blends the six sub-scores into the final score. Each
// sub-score is first rescaled to 0-100 by its ceiling.
type FusionWeights struct {
	Anomaly   float64
	Amount    float64
	Time      float64
	Velocity  float64
	Deviation float64
	Merchant  float64
}

// DefaultFusionWeights weights the learned anomaly score highest.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		Anomaly:   0.40,
		Amount:    0.20,
		Time:      0.10,
		Velocity:  0.10,
		Deviation: 0.15,
		Merchant:  0.05,
	}
}

// Validate rejects negative weights and tables that do not sum to 1.
func (w FusionWeights) Validate() error {
	all := []float64{w.Anomaly, w.Amount, w.Time, w.Velocity, w.Deviation, w.Merchant}
	var sum float64
	for _, v := range all {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("fusion weight %v: %w", v, model.ErrInvalidConfiguration)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("fusion weights sum to %v: %w", sum, model.ErrInvalidConfiguration)
	}
	return nil
}

// Fuse combines the sub-scores of s into a score in [0, 100].
func (w FusionWeights) Fuse(s model.ScoredTransaction) float64 {
	v := w.Anomaly*s.AnomalyScore/MaxAnomalyScore +
		w.Amount*s.AmountScore/MaxAmountScore +
		w.Time*s.TimeScore/MaxTimeScore +
		w.Velocity*s.VelocityScore/MaxVelocityScore +
		w.Deviation*s.DeviationScore/MaxDeviationScore +
		w.Merchant*s.MerchantScore/MaxMerchantScore
	return clamp(v*100, 0, 100)
}

// Scorer scores transactions against a trained bundle.
type Scorer struct {
	bundle  *Bundle
	weights FusionWeights
}

// NewScorer validates the weights and bundle.
func NewScorer(b *Bundle, w FusionWeights) (*Scorer, error) {
	if !b.trained() {
		return nil, model.ErrUntrainedModel
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{bundle: b, weights: w}, nil
}

// Score computes the sub-scores, fused score and risk label of every
// transaction. Daily velocity is counted within txns.
func (sc *Scorer) Score(txns []model.Transaction) []model.ScoredTransaction {
	b := sc.bundle
	frame := b.Encoder.Transform(txns)
	col := func(name string) int { return frame.Index(name) }
	iPct, iNight, iWeekend := col("amount_percentile"), col("is_night"), col("is_weekend")
	iDaily, iZ, iRare := col("daily_txn_count"), col("amount_zscore"), col("rare_merchant")

	span := b.DecisionMax - b.DecisionMin + 1e-10
	out := make([]model.ScoredTransaction, len(txns))
	for i, row := range frame.Rows {
		d := b.Forest.Decision(b.Scaler.Transform(row))
		s := model.ScoredTransaction{
			Transaction:    txns[i],
			AnomalyScore:   clamp(100-(d-b.DecisionMin)/span*100, 0, MaxAnomalyScore),
			AmountScore:    row[iPct] * MaxAmountScore,
			TimeScore:      row[iNight]*15 + row[iWeekend]*5,
			VelocityScore:  math.Min(row[iDaily]*3, MaxVelocityScore),
			DeviationScore: math.Min(math.Abs(row[iZ])*5, MaxDeviationScore),
			MerchantScore:  row[iRare] * MaxMerchantScore,
		}
		s.FraudScore = sc.weights.Fuse(s)
		s.Risk = model.ClassifyRisk(s.FraudScore)
		out[i] = s
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
