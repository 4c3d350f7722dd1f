package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// UnknownLabel replaces empty category and payment method values.
const UnknownLabel = "Unknown"

// Thresholds of the rule-derived fraud flags.
const (
	HighValuePercentile = 0.95
	HighVelocityPerDay  = 5
	RareMerchantMax     = 2
)

var fraudNames = []string{
	"amount", "log_amount", "hour", "day_of_week", "is_weekend",
	"is_night", "day_of_month", "is_month_end", "category_encoded",
	"payment_encoded", "amount_zscore", "amount_percentile",
	"is_high_value", "daily_txn_count", "high_velocity",
	"merchant_frequency", "rare_merchant",
}

// FraudFeatureNames returns the per-transaction feature columns in
// declaration order.
func FraudFeatureNames() []string {
	return append([]string(nil), fraudNames...)
}

// LabelEncoder maps strings to dense integer codes in sorted class order.
// Values not seen at fit time get the reserved code len(Classes).
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// FitLabelEncoder collects the distinct values, with empty values mapped
// to UnknownLabel.
func FitLabelEncoder(values []string) LabelEncoder {
	seen := make(map[string]struct{})
	for _, v := range values {
		seen[normalizeLabel(v)] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return LabelEncoder{Classes: classes}
}

// Encode returns the code of v.
func (e LabelEncoder) Encode(v string) int {
	v = normalizeLabel(v)
	i := sort.SearchStrings(e.Classes, v)
	if i < len(e.Classes) && e.Classes[i] == v {
		return i
	}
	return len(e.Classes)
}

func normalizeLabel(v string) string {
	if v == "" {
		return UnknownLabel
	}
	return v
}

// AmountStats is the mean and standard deviation of a group of amounts.
type AmountStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// FraudEncoder holds every table the fraud features are computed against.
// It is fit once on the training ledger and reused unchanged when scoring.
type FraudEncoder struct {
	Category       LabelEncoder           `json:"category"`
	Payment        LabelEncoder           `json:"payment_method"`
	CategoryStats  map[string]AmountStats `json:"category_stats"`
	Global         AmountStats            `json:"global"`
	Amounts        []float64              `json:"amounts"` // sorted
	MerchantCounts map[string]int         `json:"merchant_counts"`
}

// FitFraudEncoder fits label encodings, per-category amount statistics,
// the amount distribution and merchant frequencies over txns. Categories
// with fewer than two samples fall back to the global standard deviation.
func FitFraudEncoder(txns []model.Transaction) (*FraudEncoder, error) {
	if len(txns) == 0 {
		return nil, fmt.Errorf("fitting fraud encoder: %w", model.ErrInsufficientData)
	}
	cats := make([]string, len(txns))
	pays := make([]string, len(txns))
	amounts := make([]float64, len(txns))
	byCat := make(map[string][]float64)
	merchants := make(map[string]int)
	for i, t := range txns {
		cats[i] = t.Category
		pays[i] = t.PaymentMethod
		a := t.AmountFloat()
		amounts[i] = a
		c := normalizeLabel(t.Category)
		byCat[c] = append(byCat[c], a)
		merchants[t.Merchant]++
	}

	e := &FraudEncoder{
		Category:       FitLabelEncoder(cats),
		Payment:        FitLabelEncoder(pays),
		CategoryStats:  make(map[string]AmountStats, len(byCat)),
		Global:         sampleStats(amounts),
		MerchantCounts: merchants,
	}
	for c, xs := range byCat {
		st := sampleStats(xs)
		if len(xs) < 2 {
			st.Std = e.Global.Std
		}
		e.CategoryStats[c] = st
	}
	sort.Float64s(amounts)
	e.Amounts = amounts
	return e, nil
}

// Transform computes the feature matrix for txns. Daily velocity is counted
// within txns; every other statistic comes from the fitted tables.
func (e *FraudEncoder) Transform(txns []model.Transaction) Frame {
	daily := make(map[dayKey]int)
	for _, t := range txns {
		daily[dayOf(t)]++
	}

	f := Frame{Names: FraudFeatureNames(), Rows: make([][]float64, len(txns))}
	for i, t := range txns {
		a := t.AmountFloat()
		ts := t.Timestamp
		hour := ts.Hour()
		dow := (int(ts.Weekday()) + 6) % 7 // Monday = 0
		dom := ts.Day()

		st, ok := e.CategoryStats[normalizeLabel(t.Category)]
		if !ok {
			st = e.Global
		}
		z := (a - st.Mean) / (st.Std + 1)

		pct := e.Percentile(a)
		dc := daily[dayOf(t)]
		mf := e.MerchantCounts[t.Merchant]

		f.Rows[i] = []float64{
			a,
			math.Log1p(a),
			float64(hour),
			float64(dow),
			boolFloat(dow >= 5),
			boolFloat(hour >= 22 || hour <= 5),
			float64(dom),
			boolFloat(dom >= 25),
			float64(e.Category.Encode(t.Category)),
			float64(e.Payment.Encode(t.PaymentMethod)),
			z,
			pct,
			boolFloat(pct > HighValuePercentile),
			float64(dc),
			boolFloat(dc > HighVelocityPerDay),
			float64(mf),
			boolFloat(mf <= RareMerchantMax),
		}
	}
	return f
}

// Percentile is the average-rank percentile of amount within the fitted
// amounts, in (0, 1]. Amounts outside the fitted set rank by how many
// fitted amounts lie below them.
func (e *FraudEncoder) Percentile(amount float64) float64 {
	n := len(e.Amounts)
	if n == 0 {
		return 0
	}
	less := sort.SearchFloat64s(e.Amounts, amount)
	upTo := sort.Search(n, func(i int) bool { return e.Amounts[i] > amount })
	equal := upTo - less
	if equal == 0 {
		return float64(less) / float64(n)
	}
	return (float64(less) + float64(equal+1)/2) / float64(n)
}

type dayKey struct {
	user int64
	date string
}

func dayOf(t model.Transaction) dayKey {
	return dayKey{user: t.UserID, date: t.Timestamp.Format(time.DateOnly)}
}

// sampleStats returns the mean and sample (n-1) standard deviation; the
// deviation of a single value is 0.
func sampleStats(xs []float64) AmountStats {
	switch len(xs) {
	case 0:
		return AmountStats{}
	case 1:
		return AmountStats{Mean: xs[0]}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return AmountStats{Mean: mean, Std: std}
}
