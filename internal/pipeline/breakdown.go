package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// SpendRow is the spend of one category or payment method.
type SpendRow struct {
	Key     string          `json:"key"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
	Share   float64         `json:"share"` // fraction of all spend
}

// SpendSummary totals a ledger slice.
type SpendSummary struct {
	Transactions int
	Total        decimal.Decimal
	Average      decimal.Decimal
	Largest      decimal.Decimal
	First        model.Transaction
	Last         model.Transaction
	Users        int
}

// Summarize computes ledger totals. txns must be non-empty for First/Last
// to be meaningful.
func Summarize(txns []model.Transaction) SpendSummary {
	var s SpendSummary
	users := make(map[int64]struct{})
	for i, t := range txns {
		s.Transactions++
		s.Total = s.Total.Add(t.Amount)
		if t.Amount.GreaterThan(s.Largest) {
			s.Largest = t.Amount
		}
		if i == 0 || t.Timestamp.Before(s.First.Timestamp) {
			s.First = t
		}
		if i == 0 || !t.Timestamp.Before(s.Last.Timestamp) {
			s.Last = t
		}
		users[t.UserID] = struct{}{}
	}
	s.Users = len(users)
	if s.Transactions > 0 {
		s.Average = s.Total.Div(decimal.NewFromInt(int64(s.Transactions))).Round(2)
	}
	return s
}

// CategoryBreakdown splits spend by category, largest first.
func CategoryBreakdown(txns []model.Transaction) []SpendRow {
	return breakdown(txns, func(t model.Transaction) string { return t.Category })
}

// PaymentBreakdown splits spend by payment method, largest first.
func PaymentBreakdown(txns []model.Transaction) []SpendRow {
	return breakdown(txns, func(t model.Transaction) string { return t.PaymentMethod })
}

func breakdown(txns []model.Transaction, key func(model.Transaction) string) []SpendRow {
	byKey := make(map[string]*SpendRow)
	total := decimal.Zero
	for _, t := range txns {
		k := key(t)
		if k == "" {
			k = "Unknown"
		}
		row, ok := byKey[k]
		if !ok {
			row = &SpendRow{Key: k}
			byKey[k] = row
		}
		row.Total = row.Total.Add(t.Amount)
		row.Count++
		total = total.Add(t.Amount)
	}

	rows := make([]SpendRow, 0, len(byKey))
	for _, row := range byKey {
		row.Average = row.Total.Div(decimal.NewFromInt(int64(row.Count))).Round(2)
		if total.IsPositive() {
			row.Share, _ = row.Total.Div(total).Float64()
		}
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].Total.Cmp(rows[j].Total); c != 0 {
			return c > 0
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}
