package source

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// writeLedger creates a temp CSV file and returns a DiscoveredFile for it.
func writeLedger(t *testing.T, lines ...string) DiscoveredFile {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return DiscoveredFile{Path: path, Name: "ledger"}
}

func TestParseFile_FullRows(t *testing.T) {
	df := writeLedger(t,
		"id,user_id,date,amount,category,merchant,payment_method",
		"1,7,2024-01-05 14:30:00,12.50,Groceries,Fresh Mart,Card",
		`2,7,2024-01-06T09:00:00,"1,000.00",Travel,Air,Card`,
		"3,7,2024-01-07,99.10,Dining,,Cash",
	)

	res := ParseFile(df)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	// "1,000.00" is not a decimal and is skipped.
	if len(res.Transactions) != 2 {
		t.Fatalf("len = %d, want 2", len(res.Transactions))
	}
	if res.ParseErrors != 1 {
		t.Errorf("ParseErrors = %d, want 1", res.ParseErrors)
	}

	first := res.Transactions[0]
	if first.ID != 1 || first.UserID != 7 {
		t.Errorf("ids = %d/%d, want 1/7", first.ID, first.UserID)
	}
	if !first.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("amount = %s, want 12.5", first.Amount)
	}
	want := time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", first.Timestamp, want)
	}
	if first.Category != "Groceries" || first.Merchant != "Fresh Mart" || first.PaymentMethod != "Card" {
		t.Errorf("labels = %+v", first)
	}
	if res.Transactions[1].Merchant != "" {
		t.Errorf("empty merchant = %q, want empty", res.Transactions[1].Merchant)
	}
}

func TestParse_ColumnOrderAndOptionalColumns(t *testing.T) {
	in := "Amount,Date,User_ID\n5,2024-02-01 00:00:00,3\n"
	res := Parse(strings.NewReader(in))
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("len = %d, want 1", len(res.Transactions))
	}
	got := res.Transactions[0]
	if got.ID != 0 || got.UserID != 3 || got.Category != "" {
		t.Errorf("got %+v", got)
	}
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	res := Parse(strings.NewReader("id,user_id,date\n1,1,2024-01-01\n"))
	if res.Err == nil || !strings.Contains(res.Err.Error(), "amount") {
		t.Errorf("err = %v, want missing amount column", res.Err)
	}
}

func TestParse_Empty(t *testing.T) {
	if res := Parse(strings.NewReader("")); res.Err == nil {
		t.Error("expected error for empty input")
	}
}

func TestParse_MalformedRowsSkipped(t *testing.T) {
	in := strings.Join([]string{
		"user_id,date,amount",
		"1,2024-01-01 10:00:00,10",
		"x,2024-01-01 10:00:00,10",  // bad user
		"1,yesterday,10",            // bad date
		"1,2024-01-01 10:00:00,-3",  // negative amount
		"1,2024-01-01 10:00:00,0",   // zero amount
		",,",                        // blank
		"1,2024-01-02 10:00:00,$20", // currency symbol tolerated
	}, "\n")
	res := Parse(strings.NewReader(in))
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if len(res.Transactions) != 2 {
		t.Errorf("len = %d, want 2", len(res.Transactions))
	}
	if res.ParseErrors != 4 {
		t.Errorf("ParseErrors = %d, want 4", res.ParseErrors)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-04 05:06:07", time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2024-03-04T05:06:07", time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2024-03-04T23:30:00+02:00", time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)},
		{"2024-03-04", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"03/04/2024", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseDate("04.03.2024"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	in := []model.Transaction{{
		ID:            9,
		UserID:        2,
		Timestamp:     time.Date(2024, 6, 29, 23, 30, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("42.1"),
		Category:      "Shopping, Misc",
		Merchant:      "Store",
		PaymentMethod: "Card",
	}}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, in); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "42.10") {
		t.Errorf("amount not fixed to cents: %q", buf.String())
	}
	res := Parse(&buf)
	if res.Err != nil || len(res.Transactions) != 1 {
		t.Fatalf("parse back: %v, %d rows", res.Err, len(res.Transactions))
	}
	got := res.Transactions[0]
	if got.ID != 9 || got.Category != "Shopping, Misc" || !got.Timestamp.Equal(in[0].Timestamp) {
		t.Errorf("round trip = %+v", got)
	}
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel string) {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("user_id,date,amount\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("b.csv")
	mustWrite("sub/a.CSV")
	mustWrite("notes.txt")
	mustWrite(".hidden/c.csv")

	files, err := ScanDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("found %d files, want 2: %+v", len(files), files)
	}
	if files[0].Name != "b" || files[1].Name != "a" {
		t.Errorf("names = %q,%q, want b,a (path order)", files[0].Name, files[1].Name)
	}
	if files[0].SizeBytes == 0 || files[0].MtimeNs == 0 {
		t.Errorf("missing stat info: %+v", files[0])
	}

	single, err := ScanDir(filepath.Join(root, "b.csv"))
	if err != nil || len(single) != 1 {
		t.Errorf("ScanDir(file) = %v, %v", single, err)
	}

	missing, err := ScanDir(filepath.Join(root, "nope"))
	if err != nil || missing != nil {
		t.Errorf("ScanDir(missing) = %v, %v, want nil, nil", missing, err)
	}
}
