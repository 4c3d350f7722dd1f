package model

import "time"

// Trend labels for spending direction.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// EvalMetrics holds held-out test metrics for one model.
type EvalMetrics struct {
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
	MAPE float64 `json:"mape"`
}

// Forecast is the next-month spending prediction.
type Forecast struct {
	Month       string             `json:"month"`
	Predictions map[string]float64 `json:"predictions"`
	Ensemble    float64            `json:"ensemble"`
	Confidence  float64            `json:"confidence"`
	Trend       string             `json:"trend"`
	BestModel   string             `json:"best_model,omitempty"`
}

// CategoryForecast is the moving-average prediction for one category.
type CategoryForecast struct {
	Category         string  `json:"category"`
	PredictedAmount  float64 `json:"predicted_amount"`
	Confidence       float64 `json:"confidence"`
	Trend            string  `json:"trend"`
	AvgTransaction   float64 `json:"avg_transaction"`
	TransactionCount int     `json:"transaction_count"`
}

// AnomalySummary describes the fitted anomaly forest on its training data.
type AnomalySummary struct {
	Anomalies     int     `json:"n_anomalies"`
	AnomalyRate   float64 `json:"anomaly_rate"`
	Contamination float64 `json:"contamination"`
}

// FlaggedTransaction is one row of the top-N suspicious list.
type FlaggedTransaction struct {
	ID        int64     `json:"id"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	Merchant  string    `json:"merchant"`
	Timestamp time.Time `json:"date"`
	Score     float64   `json:"fraud_score"`
	Risk      RiskLevel `json:"risk_level"`
}

// FraudReport summarizes a scoring run.
type FraudReport struct {
	TotalTransactions   int                  `json:"total_transactions"`
	FlaggedTransactions int                  `json:"flagged_transactions"`
	RiskDistribution    map[RiskLevel]int    `json:"risk_distribution"`
	Training            AnomalySummary       `json:"training_results"`
	TopFlagged          []FlaggedTransaction `json:"top_flagged"`
}
