package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// createdLayout has a fixed width so created_at sorts lexically.
const createdLayout = "2006-01-02T15:04:05.000000000Z"

// BundleRecord is one persisted model bundle. Payload is the bundle's JSON
// encoding; the store treats it as opaque.
type BundleRecord struct {
	ID          string
	Kind        string
	UserID      int64
	CreatedAt   time.Time
	Fingerprint string
	Tuned       bool
	Payload     []byte
}

// SaveBundle stores rec, replacing any bundle with the same ID.
func (s *Store) SaveBundle(ctx context.Context, rec BundleRecord) error {
	if rec.ID == "" || rec.Kind == "" {
		return fmt.Errorf("saving bundle: id and kind are required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO model_bundles
		(id, kind, user_id, created_at, fingerprint, tuned, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.UserID, rec.CreatedAt.UTC().Format(createdLayout),
		rec.Fingerprint, boolToInt(rec.Tuned), rec.Payload)
	if err != nil {
		return fmt.Errorf("saving bundle %s: %w", rec.ID, err)
	}
	return nil
}

// LatestBundle returns the most recent bundle of kind for userID, or nil
// when none has been saved.
func (s *Store) LatestBundle(ctx context.Context, kind string, userID int64) (*BundleRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, user_id, created_at, fingerprint, tuned, payload
		FROM model_bundles WHERE kind = ? AND user_id = ?
		ORDER BY created_at DESC LIMIT 1`, kind, userID)
	rec, err := scanBundle(row, true)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// Bundle returns the bundle with the given ID.
func (s *Store) Bundle(ctx context.Context, id string) (*BundleRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, user_id, created_at, fingerprint, tuned, payload
		FROM model_bundles WHERE id = ?`, id)
	rec, err := scanBundle(row, true)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", id, err)
	}
	return rec, nil
}

// ListBundles returns bundle metadata, newest first, without payloads.
// An empty kind lists every kind.
func (s *Store) ListBundles(ctx context.Context, kind string) ([]BundleRecord, error) {
	query := `SELECT id, kind, user_id, created_at, fingerprint, tuned FROM model_bundles`
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []BundleRecord
	for rows.Next() {
		rec, err := scanBundle(rows, false)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

// DeleteBundle removes a bundle.
func (s *Store) DeleteBundle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM model_bundles WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bundle %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBundle(sc scanner, withPayload bool) (*BundleRecord, error) {
	var (
		rec     BundleRecord
		created string
		tuned   int
	)
	dest := []any{&rec.ID, &rec.Kind, &rec.UserID, &created, &rec.Fingerprint, &tuned}
	if withPayload {
		dest = append(dest, &rec.Payload)
	}
	if err := sc.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ts, err := time.Parse(createdLayout, created)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: bad created_at %q: %w", rec.ID, created, err)
	}
	rec.CreatedAt = ts
	rec.Tuned = tuned != 0
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
