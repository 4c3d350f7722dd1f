// Package source discovers and parses ledger CSV files.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// dateLayouts are tried in order. Zoned timestamps keep their wall clock.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseResult holds the output of parsing a single ledger file.
type ParseResult struct {
	Transactions []model.Transaction
	ParseErrors  int
	Err          error
}

// ParseFile reads one ledger CSV. Malformed rows are counted in ParseErrors
// and skipped; a missing or unusable header fails the whole file.
func ParseFile(df DiscoveredFile) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{Err: err}
	}
	defer func() { _ = f.Close() }()

	res := Parse(f)
	if res.Err != nil {
		res.Err = fmt.Errorf("%s: %w", df.Path, res.Err)
	}
	return res
}

// Parse reads ledger rows from r. The first record must be a header naming
// at least user_id, date and amount.
func Parse(r io.Reader) ParseResult {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ParseResult{Err: errors.New("empty ledger: missing header")}
		}
		return ParseResult{Err: fmt.Errorf("reading header: %w", err)}
	}
	cols, err := indexHeader(header)
	if err != nil {
		return ParseResult{Err: err}
	}

	var res ParseResult
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				res.ParseErrors++
				continue
			}
			res.Err = err
			return res
		}
		if blank(rec) {
			continue
		}
		t, err := cols.transaction(rec)
		if err != nil {
			res.ParseErrors++
			continue
		}
		res.Transactions = append(res.Transactions, t)
	}
	return res
}

// columns maps canonical column names to record positions; -1 is absent.
type columns struct {
	id, user, date, amount, category, merchant, payment int
}

func indexHeader(header []string) (columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	for _, req := range requiredColumns {
		if _, ok := pos[req]; !ok {
			return columns{}, fmt.Errorf("ledger header missing %q column", req)
		}
	}
	get := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}
	return columns{
		id:       get(ColID),
		user:     get(ColUserID),
		date:     get(ColDate),
		amount:   get(ColAmount),
		category: get(ColCategory),
		merchant: get(ColMerchant),
		payment:  get(ColPaymentMethod),
	}, nil
}

func (c columns) field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (c columns) transaction(rec []string) (model.Transaction, error) {
	var t model.Transaction

	if raw := c.field(rec, c.id); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return t, fmt.Errorf("bad id %q", raw)
		}
		t.ID = id
	}

	user, err := strconv.ParseInt(c.field(rec, c.user), 10, 64)
	if err != nil {
		return t, fmt.Errorf("bad user_id: %w", err)
	}
	t.UserID = user

	ts, err := ParseDate(c.field(rec, c.date))
	if err != nil {
		return t, err
	}
	t.Timestamp = ts

	amt, err := decimal.NewFromString(strings.TrimPrefix(c.field(rec, c.amount), "$"))
	if err != nil {
		return t, fmt.Errorf("bad amount: %w", err)
	}
	if !amt.IsPositive() {
		return t, fmt.Errorf("amount %s is not positive", amt)
	}
	t.Amount = amt

	t.Category = c.field(rec, c.category)
	t.Merchant = c.field(rec, c.merchant)
	t.PaymentMethod = c.field(rec, c.payment)
	return t, nil
}

// ParseDate accepts the supported ledger layouts and returns the wall-clock
// time in UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
