package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// PostgresSource reads the ledger from an external Postgres transactions
// table with the columns id, user_id, date, amount, category, merchant and
// payment_method.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource connects to dsn and verifies the connection.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

// NewPostgresSourceFromPool wraps an existing pool.
func NewPostgresSourceFromPool(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Close releases the pool.
func (p *PostgresSource) Close() {
	p.pool.Close()
}

// Transactions returns the ledger in chronological order. A zero userID
// returns every user's rows.
func (p *PostgresSource) Transactions(ctx context.Context, userID int64) ([]model.Transaction, error) {
	query, args := postgresTransactionsQuery(userID)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var result []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Timestamp, &t.Amount,
			&t.Category, &t.Merchant, &t.PaymentMethod); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.Timestamp = t.Timestamp.UTC()
		result = append(result, t)
	}
	return result, rows.Err()
}

func postgresTransactionsQuery(userID int64) (string, []any) {
	query := `SELECT id, user_id, date::timestamp, amount::text,
		COALESCE(category, ''), COALESCE(merchant, ''), COALESCE(payment_method, '')
		FROM transactions`
	var args []any
	if userID != 0 {
		query += " WHERE user_id = $1"
		args = append(args, userID)
	}
	query += " ORDER BY date, id"
	return query, args
}
