// Package store provides a SQLite-backed ledger and model bundle store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ledgerscope/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// DateLayout is the wall-clock layout ledger timestamps are stored in.
// Timestamps carry no zone; they are read back as UTC wall time.
const DateLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned when a requested bundle does not exist.
var ErrNotFound = errors.New("not found")

// Store is the SQLite ledger plus the model bundle table.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertTransactions writes txns in one transaction. Rows with a zero ID get
// one assigned by SQLite; rows with an existing ID replace the stored row.
func (s *Store) InsertTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO transactions
		(id, user_id, date, amount, category, merchant, payment_method, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, t := range txns {
		var id any
		if t.ID > 0 {
			id = t.ID
		}
		_, err := stmt.ExecContext(ctx, id, t.UserID, t.Timestamp.Format(DateLayout),
			t.Amount.String(), t.Category, t.Merchant, t.PaymentMethod, now)
		if err != nil {
			return 0, fmt.Errorf("inserting transaction %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(txns), nil
}

// Transactions returns the ledger in chronological order. A zero userID
// returns every user's rows.
func (s *Store) Transactions(ctx context.Context, userID int64) ([]model.Transaction, error) {
	query := `SELECT id, user_id, date, amount, category, merchant, payment_method
		FROM transactions`
	var args []any
	if userID != 0 {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []model.Transaction
	for rows.Next() {
		var (
			t    model.Transaction
			date string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &date, &t.Amount,
			&t.Category, &t.Merchant, &t.PaymentMethod); err != nil {
			return nil, err
		}
		ts, err := time.ParseInLocation(DateLayout, date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: bad date %q: %w", t.ID, date, err)
		}
		t.Timestamp = ts
		result = append(result, t)
	}
	return result, rows.Err()
}

// TransactionCount returns the number of stored ledger rows.
func (s *Store) TransactionCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count)
	return count, err
}

// Users returns the distinct user IDs in the ledger with their row counts
// and spend totals, ordered by user ID.
func (s *Store) Users(ctx context.Context) ([]UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, COUNT(*), MIN(date), MAX(date)
		FROM transactions GROUP BY user_id ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []UserSummary
	for rows.Next() {
		var (
			u           UserSummary
			first, last string
		)
		if err := rows.Scan(&u.UserID, &u.Count, &first, &last); err != nil {
			return nil, err
		}
		u.First, _ = time.ParseInLocation(DateLayout, first, time.UTC)
		u.Last, _ = time.ParseInLocation(DateLayout, last, time.UTC)
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Amounts are decimal strings, so totals are summed outside SQLite.
	for i := range result {
		total, err := s.userTotal(ctx, result[i].UserID)
		if err != nil {
			return nil, err
		}
		result[i].Total = total
	}
	return result, nil
}

func (s *Store) userTotal(ctx context.Context, userID int64) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT amount FROM transactions WHERE user_id = ?", userID)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = rows.Close() }()

	total := decimal.Zero
	for rows.Next() {
		var amt decimal.Decimal
		if err := rows.Scan(&amt); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amt)
	}
	return total, rows.Err()
}

// UserSummary describes one user's slice of the ledger.
type UserSummary struct {
	UserID int64
	Count  int
	Total  decimal.Decimal
	First  time.Time
	Last   time.Time
}

// FileInfo holds the tracked mtime and size for an imported file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// TrackedFiles returns a map of file_path -> FileInfo for all imported files.
func (s *Store) TrackedFiles(ctx context.Context) (map[string]FileInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT file_path, mtime_ns, size_bytes FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// TrackFile records that a file was imported at the given mtime and size.
func (s *Store) TrackFile(ctx context.Context, path string, fi FileInfo) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes) VALUES (?, ?, ?)",
		path, fi.MtimeNs, fi.SizeBytes)
	return err
}
