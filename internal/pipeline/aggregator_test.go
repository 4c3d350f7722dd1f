package pipeline

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

func tx(id int64, ts time.Time, amount float64) model.Transaction {
	return model.Transaction{
		ID:            id,
		UserID:        1,
		Timestamp:     ts,
		Amount:        decimal.NewFromFloat(amount),
		Category:      "Groceries",
		Merchant:      "Fresh Mart",
		PaymentMethod: "Card",
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestAggregateMonthly(t *testing.T) {
	txns := []model.Transaction{
		tx(3, day(2024, 3, 2), 40),
		tx(1, day(2024, 1, 5), 10),
		tx(2, day(2024, 1, 20), 30),
		tx(4, day(2023, 12, 31), 7),
	}
	buckets, err := AggregateMonthly(txns)
	if err != nil {
		t.Fatalf("AggregateMonthly: %v", err)
	}
	if len(buckets) != 3 {
		t.Fatalf("len = %d, want 3", len(buckets))
	}
	wantKeys := []string{"2023-12", "2024-01", "2024-03"}
	for i, k := range wantKeys {
		if buckets[i].Key() != k {
			t.Errorf("buckets[%d] = %s, want %s", i, buckets[i].Key(), k)
		}
	}

	jan := buckets[1]
	if jan.Total != 40 || jan.Count != 2 || jan.Mean != 20 || jan.Max != 30 || jan.Min != 10 {
		t.Errorf("jan = %+v", jan)
	}
	if want := math.Sqrt(200); math.Abs(jan.Std-want) > 1e-9 {
		t.Errorf("jan.Std = %v, want sample std %v", jan.Std, want)
	}
	if !math.IsNaN(buckets[0].Std) {
		t.Errorf("single-transaction month Std = %v, want NaN", buckets[0].Std)
	}
	if buckets[0].Mean != 7 {
		t.Errorf("single-transaction month Mean = %v, want 7", buckets[0].Mean)
	}

	totals := MonthlyTotals(buckets)
	if totals[0] != 7 || totals[1] != 40 || totals[2] != 40 {
		t.Errorf("totals = %v", totals)
	}
}

func TestAggregateMonthly_Empty(t *testing.T) {
	_, err := AggregateMonthly(nil)
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

func TestFilterByTime(t *testing.T) {
	txns := []model.Transaction{
		tx(1, day(2024, 1, 1), 1),
		tx(2, day(2024, 2, 1), 1),
		tx(3, day(2024, 3, 1), 1),
	}
	got := FilterByTime(txns, day(2024, 2, 1), day(2024, 3, 1))
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("bounded = %+v, want only id 2", got)
	}
	if got := FilterByTime(txns, time.Time{}, day(2024, 2, 1)); len(got) != 1 {
		t.Errorf("open since = %d rows, want 1", len(got))
	}
	if got := FilterByTime(txns, time.Time{}, time.Time{}); len(got) != 3 {
		t.Errorf("unbounded = %d rows, want 3", len(got))
	}
}

func TestSortChronological(t *testing.T) {
	ts := day(2024, 1, 1)
	txns := []model.Transaction{tx(5, ts, 1), tx(2, ts.Add(-time.Hour), 1), tx(3, ts, 1)}
	SortChronological(txns)
	want := []int64{2, 3, 5}
	for i, id := range want {
		if txns[i].ID != id {
			t.Errorf("txns[%d].ID = %d, want %d", i, txns[i].ID, id)
		}
	}
}

func TestBreakdown(t *testing.T) {
	txns := []model.Transaction{
		tx(1, day(2024, 1, 1), 10),
		tx(2, day(2024, 1, 2), 30),
		tx(3, day(2024, 1, 3), 60),
	}
	txns[2].Category = "Travel"
	txns[2].PaymentMethod = ""

	cats := CategoryBreakdown(txns)
	if len(cats) != 2 || cats[0].Key != "Travel" {
		t.Fatalf("categories = %+v, want Travel first", cats)
	}
	if cats[1].Count != 2 || !cats[1].Average.Equal(decimal.NewFromInt(20)) {
		t.Errorf("groceries = %+v", cats[1])
	}
	if math.Abs(cats[0].Share-0.6) > 1e-9 {
		t.Errorf("travel share = %v, want 0.6", cats[0].Share)
	}

	pay := PaymentBreakdown(txns)
	if pay[0].Key != "Unknown" {
		t.Errorf("empty payment method key = %q, want Unknown", pay[0].Key)
	}

	sum := Summarize(txns)
	if sum.Transactions != 3 || !sum.Total.Equal(decimal.NewFromInt(100)) || sum.Users != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if !sum.Largest.Equal(decimal.NewFromInt(60)) || sum.First.ID != 1 || sum.Last.ID != 3 {
		t.Errorf("summary extremes = %+v", sum)
	}
}

func TestFingerprint(t *testing.T) {
	txns := []model.Transaction{tx(1, day(2024, 1, 1), 10), tx(2, day(2024, 1, 2), 20)}
	a := Fingerprint(txns)
	if a != Fingerprint(txns) {
		t.Fatal("fingerprint not stable")
	}
	if len(a) != 32 {
		t.Errorf("len = %d, want 32 hex chars", len(a))
	}

	changed := append([]model.Transaction(nil), txns...)
	changed[1].Amount = decimal.NewFromFloat(20.01)
	if Fingerprint(changed) == a {
		t.Error("amount change did not change fingerprint")
	}
	if Fingerprint(txns[:1]) == a {
		t.Error("row removal did not change fingerprint")
	}
}
