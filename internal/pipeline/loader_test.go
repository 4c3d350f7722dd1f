package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/source"
	"github.com/theirongolddev/ledgerscope/internal/store"
)

func writeCSV(t *testing.T, path string, txns []model.Transaction) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if err := source.WriteCSV(f, txns); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "feb.csv"), []model.Transaction{tx(2, day(2024, 2, 1), 20)})
	writeCSV(t, filepath.Join(dir, "jan.csv"), []model.Transaction{tx(1, day(2024, 1, 1), 10)})
	if err := os.WriteFile(filepath.Join(dir, "broken.csv"), []byte("no,header,here\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int64
	res, err := Load(dir, 2, func(current, total int) {
		calls.Add(1)
		if total != 3 || current < 1 || current > 3 {
			t.Errorf("progress %d/%d", current, total)
		}
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.TotalFiles != 3 || res.ParsedFiles != 2 || res.FileErrors != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Transactions) != 2 || res.Transactions[0].ID != 1 {
		t.Errorf("transactions not merged chronologically: %+v", res.Transactions)
	}
	if calls.Load() != 3 {
		t.Errorf("progress calls = %d, want 3", calls.Load())
	}
}

func TestLoad_MissingDir(t *testing.T) {
	res, err := Load(filepath.Join(t.TempDir(), "missing"), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFiles != 0 || len(res.Transactions) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestImport_SkipsUnchangedFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = st.Close() }()

	jan := filepath.Join(dir, "jan.csv")
	writeCSV(t, jan, []model.Transaction{tx(1, day(2024, 1, 1), 10), tx(2, day(2024, 1, 2), 11)})
	writeCSV(t, filepath.Join(dir, "feb.csv"), []model.Transaction{tx(3, day(2024, 2, 1), 12)})

	first, err := Import(ctx, dir, st, 0, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if first.Reparsed != 2 || first.Unchanged != 0 || first.Inserted != 3 {
		t.Errorf("first import = %+v", first)
	}

	second, err := Import(ctx, dir, st, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.Reparsed != 0 || second.Unchanged != 2 || second.Inserted != 0 {
		t.Errorf("second import = %+v", second)
	}

	writeCSV(t, jan, []model.Transaction{tx(1, day(2024, 1, 1), 10), tx(2, day(2024, 1, 2), 11), tx(4, day(2024, 1, 3), 13)})
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(jan, later, later); err != nil {
		t.Fatal(err)
	}
	third, err := Import(ctx, dir, st, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if third.Reparsed != 1 || third.Unchanged != 1 || third.Inserted != 3 {
		t.Errorf("third import = %+v", third)
	}

	count, err := st.TransactionCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Errorf("stored rows = %d, want 4 (re-imported ids replace)", count)
	}
}
