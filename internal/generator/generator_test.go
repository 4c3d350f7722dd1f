package generator

import (
	"context"
	"testing"
	"time"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := Config{NumUsers: 2, Months: 6, PerMonth: 20, OutlierRate: 0.05, Seed: 7}
	a, err := New(cfg).Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(cfg).Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("len %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Timestamp != b[i].Timestamp || !a[i].Amount.Equal(b[i].Amount) || a[i].Merchant != b[i].Merchant {
			t.Fatalf("row %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateShape(t *testing.T) {
	cfg := Config{NumUsers: 3, Months: 12, PerMonth: 30, Seed: 1,
		Start: time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)}
	txns, err := New(cfg).Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) < 3*12*15 {
		t.Fatalf("only %d transactions", len(txns))
	}

	users := map[int64]bool{}
	months := map[string]bool{}
	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := first.AddDate(0, 12, 0)
	for i, tx := range txns {
		if tx.ID != int64(i+1) {
			t.Fatalf("txns[%d].ID = %d, want %d", i, tx.ID, i+1)
		}
		if i > 0 && tx.Timestamp.Before(txns[i-1].Timestamp) {
			t.Fatalf("txns not chronological at %d", i)
		}
		if !tx.Amount.IsPositive() {
			t.Fatalf("non-positive amount %s", tx.Amount)
		}
		if tx.Timestamp.Before(first) || !tx.Timestamp.Before(end) {
			t.Fatalf("timestamp %v outside [%v, %v)", tx.Timestamp, first, end)
		}
		if tx.Category == "" || tx.Merchant == "" || tx.PaymentMethod == "" {
			t.Fatalf("missing labels: %+v", tx)
		}
		users[tx.UserID] = true
		months[tx.Timestamp.Format("2006-01")] = true
	}
	if len(users) != 3 {
		t.Errorf("users = %d, want 3", len(users))
	}
	if len(months) != 12 {
		t.Errorf("months = %d, want 12", len(months))
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(DefaultConfig()).Generate(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	g := New(Config{Seed: 3, OutlierRate: 2})
	cfg := g.Config()
	def := DefaultConfig()
	if cfg.NumUsers != def.NumUsers || cfg.Months != def.Months || cfg.PerMonth != def.PerMonth {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.OutlierRate != def.OutlierRate {
		t.Errorf("OutlierRate = %v, want %v", cfg.OutlierRate, def.OutlierRate)
	}
}
