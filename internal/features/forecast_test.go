package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

func constantBuckets(n int, total float64) []model.MonthlyBucket {
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.MonthlyBucket, n)
	for i := range out {
		out[i] = model.MonthlyBucket{
			Month: start.AddDate(0, i, 0),
			Total: total,
			Mean:  total / 4,
			Count: 4,
			Std:   0,
			Max:   total / 4,
			Min:   total / 4,
		}
	}
	return out
}

func TestBuildForecastFeatures_RowCount(t *testing.T) {
	for n := 0; n <= 14; n++ {
		ff, err := BuildForecastFeatures(constantBuckets(n, 1000), DefaultForecastSpec())
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		want := max(0, n-6)
		if ff.Len() != want {
			t.Errorf("n=%d: rows = %d, want %d", n, ff.Len(), want)
		}
		if len(ff.Targets) != ff.Len() || len(ff.Months) != ff.Len() {
			t.Errorf("n=%d: targets/months not aligned with rows", n)
		}
		for i, row := range ff.Rows {
			if len(row) != len(ff.Names) {
				t.Fatalf("row %d has %d values for %d names", i, len(row), len(ff.Names))
			}
			for j, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("n=%d row %d: %s = %v", n, i, ff.Names[j], v)
				}
			}
		}
	}
}

func TestBuildForecastFeatures_ConstantSeries(t *testing.T) {
	ff, err := BuildForecastFeatures(constantBuckets(12, 1000), DefaultForecastSpec())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"mom_growth", "mom_growth_lag1", "rolling_std_6"} {
		for i, v := range ff.Column(name) {
			if v != 0 {
				t.Errorf("%s[%d] = %v, want 0", name, i, v)
			}
		}
	}
	for i, v := range ff.Column("lag_6") {
		if v != 1000 {
			t.Errorf("lag_6[%d] = %v, want 1000", i, v)
		}
	}
	if got := ff.Column("txn_count_lag1")[0]; got != 4 {
		t.Errorf("txn_count_lag1 = %v, want 4", got)
	}
}

func TestBuildForecastFeatures_LagsAndCalendar(t *testing.T) {
	b := constantBuckets(8, 0)
	for i := range b {
		b[i].Total = float64(100 * (i + 1))
	}
	ff, err := BuildForecastFeatures(b, DefaultForecastSpec())
	if err != nil {
		t.Fatal(err)
	}
	// First row is month index 6 (July 2023).
	row := ff.Rows[0]
	checks := map[string]float64{
		"month":          7,
		"quarter":        3,
		"is_q4":          0,
		"lag_1":          600,
		"lag_6":          100,
		"rolling_mean_3": 600,
		"rolling_max_2":  700,
		"rolling_min_6":  200,
		"mom_growth":     (700.0 - 600) / 600,
	}
	for name, want := range checks {
		j := ff.Index(name)
		if j < 0 {
			t.Fatalf("missing feature %s", name)
		}
		if math.Abs(row[j]-want) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, row[j], want)
		}
	}
	if got, _, _ := ff.Last(); got[ff.Index("month")] != 8 {
		t.Errorf("last row month = %v, want 8", got[ff.Index("month")])
	}
}

func TestBuildForecastFeatures_SingleTxnMonthHasZeroStd(t *testing.T) {
	b := constantBuckets(7, 500)
	b[6].Count = 1
	b[6].Std = math.NaN()
	ff, err := BuildForecastFeatures(b, DefaultForecastSpec())
	if err != nil {
		t.Fatal(err)
	}
	if got := ff.Column("std_amount")[0]; got != 0 {
		t.Errorf("std_amount = %v, want 0", got)
	}
}

func TestForecastSpec_Validate(t *testing.T) {
	bad := []ForecastSpec{
		{MaxLag: 0, Windows: []int{2}},
		{MaxLag: 3, Windows: []int{2, -1}},
	}
	for _, s := range bad {
		_, err := BuildForecastFeatures(constantBuckets(10, 1), s)
		if !errors.Is(err, model.ErrInvalidConfiguration) {
			t.Errorf("%+v: err = %v, want ErrInvalidConfiguration", s, err)
		}
	}
}

func TestForecastSpec_Names(t *testing.T) {
	names := DefaultForecastSpec().Names()
	if len(names) != 32 {
		t.Fatalf("len(names) = %d, want 32", len(names))
	}
	if names[0] != "avg_amount" || names[len(names)-1] != "txn_count_lag1" {
		t.Errorf("unexpected order: first %s last %s", names[0], names[len(names)-1])
	}
}
