package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stackvest/dca-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
// A NULL last_purchase_at keeps the never-purchased sentinel distinguishable
// from any real timestamp.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateInvestment(ctx context.Context, rec *model.InvestmentRecord) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO investments (user_id, remaining_to_invest, per_period_amount, last_purchase_at, frequency, created_at)
		 VALUES ($1, $2::NUMERIC, $3::NUMERIC, NULL, $4, $5)
		 ON CONFLICT (user_id) DO NOTHING`,
		rec.UserID,
		rec.RemainingToInvest.String(), rec.PerPeriodAmount.String(),
		int(rec.Frequency), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create investment %s: %w", rec.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", ErrAlreadyExists, rec.UserID)
	}
	return nil
}

func (s *PostgresStore) GetInvestment(ctx context.Context, userID string) (*model.InvestmentRecord, error) {
	var (
		rec       model.InvestmentRecord
		remaining string
		perPeriod string
		last      *time.Time
		frequency int
	)

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, remaining_to_invest::TEXT, per_period_amount::TEXT,
		        last_purchase_at, frequency, created_at
		 FROM investments WHERE user_id = $1`, userID).
		Scan(&rec.UserID, &remaining, &perPeriod, &last, &frequency, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get investment %s: %w", userID, err)
	}

	rec.RemainingToInvest, _ = decimal.NewFromString(remaining)
	rec.PerPeriodAmount, _ = decimal.NewFromString(perPeriod)
	if last != nil {
		rec.LastPurchaseAt = *last
	}
	rec.Frequency = model.Frequency(frequency)

	return &rec, nil
}

func (s *PostgresStore) ListActiveUsers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM investments ORDER BY created_at, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		users = append(users, userID)
	}
	return users, rows.Err()
}

// CommitBatch applies the batch inside one transaction; a failure rolls back
// every mutation.
func (s *PostgresStore) CommitBatch(ctx context.Context, commit *BatchCommit) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch %s: %w", commit.BatchID, err)
	}
	defer tx.Rollback(ctx)

	for i := range commit.Updates {
		rec := &commit.Updates[i]
		if _, err := tx.Exec(ctx,
			`UPDATE investments
			 SET remaining_to_invest = $2::NUMERIC, last_purchase_at = $3
			 WHERE user_id = $1`,
			rec.UserID, rec.RemainingToInvest.String(), rec.LastPurchaseAt,
		); err != nil {
			return fmt.Errorf("update investment %s: %w", rec.UserID, err)
		}
	}

	for _, userID := range commit.Removals {
		if _, err := tx.Exec(ctx,
			`DELETE FROM investments WHERE user_id = $1`, userID,
		); err != nil {
			return fmt.Errorf("remove investment %s: %w", userID, err)
		}
	}

	for i := range commit.Purchases {
		p := &commit.Purchases[i]
		if _, err := tx.Exec(ctx,
			`INSERT INTO purchases (id, batch_id, user_id, target_asset, spend, minimum_out, amount_received, timestamp)
			 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8)`,
			p.ID, p.BatchID, p.UserID, p.TargetAsset,
			p.Spend.String(), p.MinimumOut.String(), p.AmountReceived.String(),
			p.Timestamp,
		); err != nil {
			return fmt.Errorf("insert purchase %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch %s: %w", commit.BatchID, err)
	}
	return nil
}

func (s *PostgresStore) GetPurchasesByUser(ctx context.Context, userID string) ([]model.PurchaseEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, batch_id, user_id, target_asset,
		        spend::TEXT, minimum_out::TEXT, amount_received::TEXT, timestamp
		 FROM purchases WHERE user_id = $1 ORDER BY timestamp`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.PurchaseEntry
	for rows.Next() {
		var e model.PurchaseEntry
		var spendS, minOutS, receivedS string

		if err := rows.Scan(&e.ID, &e.BatchID, &e.UserID, &e.TargetAsset,
			&spendS, &minOutS, &receivedS, &e.Timestamp); err != nil {
			return nil, err
		}

		e.Spend, _ = decimal.NewFromString(spendS)
		e.MinimumOut, _ = decimal.NewFromString(minOutS)
		e.AmountReceived, _ = decimal.NewFromString(receivedS)

		entries = append(entries, e)
	}
	return entries, rows.Err()
}
