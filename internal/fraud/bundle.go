package fraud

import (
	"time"

	"github.com/theirongolddev/ledgerscope/internal/features"
	"github.com/theirongolddev/ledgerscope/internal/ml"
	"github.com/theirongolddev/ledgerscope/internal/model"
)

// Kind identifies fraud bundles in the model store.
const Kind = "fraud"

// Bundle holds the fitted encoder tables, scaler and isolation forest,
// plus the training range of decision values used to rescale anomaly
// scores so that a transaction's score does not depend on its batch.
type Bundle struct {
	ID           string                 `json:"id"`
	CreatedAt    time.Time              `json:"created_at"`
	FeatureNames []string               `json:"feature_names"`
	Encoder      *features.FraudEncoder `json:"encoder"`
	Scaler       *ml.Scaler             `json:"scaler"`
	Forest       *ml.IsolationForest    `json:"forest"`
	DecisionMin  float64                `json:"decision_min"`
	DecisionMax  float64                `json:"decision_max"`
	Summary      model.AnomalySummary   `json:"summary"`
	Fingerprint  string                 `json:"fingerprint,omitempty"`
}

func (b *Bundle) trained() bool {
	return b != nil && b.Encoder != nil && b.Scaler != nil && b.Forest != nil && len(b.Forest.Trees) > 0
}
