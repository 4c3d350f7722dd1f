// Package model defines domain types shared by the forecast and fraud pipelines.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one immutable ledger row.
type Transaction struct {
	ID            int64
	UserID        int64
	Timestamp     time.Time
	Amount        decimal.Decimal
	Category      string
	Merchant      string
	PaymentMethod string
}

// AmountFloat returns the amount as a float64 for numeric work.
func (t Transaction) AmountFloat() float64 {
	f, _ := t.Amount.Float64()
	return f
}

// MonthlyBucket aggregates all transactions of one calendar month.
// Std is NaN when the month holds fewer than two transactions.
type MonthlyBucket struct {
	Month time.Time // first instant of the month, UTC
	Total float64
	Mean  float64
	Count int
	Std   float64
	Max   float64
	Min   float64
}

// Key returns the bucket's "2006-01" label.
func (b MonthlyBucket) Key() string {
	return b.Month.Format("2006-01")
}

// ScoredTransaction is a transaction with its fraud sub-scores and fused score.
type ScoredTransaction struct {
	Transaction

	AnomalyScore   float64 // 0-100
	AmountScore    float64 // 0-30
	TimeScore      float64 // 0-20
	VelocityScore  float64 // 0-15
	DeviationScore float64 // 0-25
	MerchantScore  float64 // 0-10

	FraudScore float64 // 0-100
	Risk       RiskLevel
}
