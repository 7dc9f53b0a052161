package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/money-tracker/internal/domain"
)

const transactionColumns = `id, person_id, direction, kind, amount, description, category,
	occurred_at, created_at, reversed_at`

// Range bounds are bound as nullable timestamptz parameters; a NULL bound is open.
const rangeClause = `($2::timestamptz IS NULL OR occurred_at >= $2)
	AND ($3::timestamptz IS NULL OR occurred_at <= $3)`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO transactions (person_id, direction, kind, amount, description, category, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		t.PersonID, t.Direction, t.Kind, t.Amount, t.Description, t.Category, t.OccurredAt,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetByIDAndOwner reports domain.ErrNotFound both for a missing row and for a
// row owned by someone else.
func (r *TransactionRepository) GetByIDAndOwner(ctx context.Context, id, personID int64) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND person_id = $2`,
		id, personID,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByIDAndOwner: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByIDAndOwner: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetByIDAndOwnerForUpdate(ctx context.Context, tx *sql.Tx, id, personID int64) (*domain.Transaction, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND person_id = $2 FOR UPDATE`,
		id, personID,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByIDAndOwnerForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByIDAndOwnerForUpdate: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) MarkReversed(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET reversed_at = $1 WHERE id = $2 AND reversed_at IS NULL`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("MarkReversed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkReversed: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkReversed: %w", domain.ErrAlreadyReversed)
	}
	return nil
}

func (r *TransactionRepository) List(ctx context.Context, personID int64, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	where := `person_id = $1 AND ` + rangeClause + ` AND ($4 OR reversed_at IS NULL)`
	args := []any{personID, f.Range.From, f.Range.To, f.IncludeReversed}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+where+`
		ORDER BY occurred_at DESC, id DESC
		LIMIT $5 OFFSET $6`,
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return txs, total, nil
}

// Summarize aggregates active transactions only.
func (r *TransactionRepository) Summarize(ctx context.Context, personID int64, rng domain.DateRange) (*domain.Summary, error) {
	var s domain.Summary
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(amount) FILTER (WHERE direction = 1), 0),
			COALESCE(SUM(amount) FILTER (WHERE direction = -1), 0),
			COUNT(*)
		FROM transactions
		WHERE person_id = $1 AND reversed_at IS NULL AND `+rangeClause,
		personID, rng.From, rng.To,
	).Scan(&s.TotalCredits, &s.TotalDebits, &s.Count)
	if err != nil {
		return nil, fmt.Errorf("Summarize: %w", err)
	}
	s.Net = s.TotalCredits.Sub(s.TotalDebits)
	return &s, nil
}

func (r *TransactionRepository) Categories(ctx context.Context, personID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM transactions
		WHERE person_id = $1 AND reversed_at IS NULL AND category IS NOT NULL
		ORDER BY category`,
		personID,
	)
	if err != nil {
		return nil, fmt.Errorf("Categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("Categories: scan: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Categories: rows: %w", err)
	}
	return categories, nil
}

// DebitsByCategory totals active debits per category, largest first.
// Uncategorised debits are grouped under an empty category.
func (r *TransactionRepository) DebitsByCategory(ctx context.Context, personID int64, rng domain.DateRange) ([]domain.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT COALESCE(category, ''), SUM(amount) AS total
		FROM transactions
		WHERE person_id = $1 AND reversed_at IS NULL AND direction = -1 AND `+rangeClause+`
		GROUP BY COALESCE(category, '')
		ORDER BY total DESC, 1`,
		personID, rng.From, rng.To,
	)
	if err != nil {
		return nil, fmt.Errorf("DebitsByCategory: %w", err)
	}
	defer rows.Close()

	totals := []domain.CategoryTotal{}
	for rows.Next() {
		var ct domain.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, fmt.Errorf("DebitsByCategory: scan: %w", err)
		}
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("DebitsByCategory: rows: %w", err)
	}
	return totals, nil
}

// MonthlyTotals groups active transactions by UTC calendar month, keyed YYYY-MM.
func (r *TransactionRepository) MonthlyTotals(ctx context.Context, personID int64, rng domain.DateRange) ([]domain.MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT to_char(occurred_at AT TIME ZONE 'UTC', 'YYYY-MM') AS month,
			COALESCE(SUM(amount) FILTER (WHERE direction = 1), 0),
			COALESCE(SUM(amount) FILTER (WHERE direction = -1), 0)
		FROM transactions
		WHERE person_id = $1 AND reversed_at IS NULL AND `+rangeClause+`
		GROUP BY month
		ORDER BY month`,
		personID, rng.From, rng.To,
	)
	if err != nil {
		return nil, fmt.Errorf("MonthlyTotals: %w", err)
	}
	defer rows.Close()

	totals := []domain.MonthTotal{}
	for rows.Next() {
		var mt domain.MonthTotal
		if err := rows.Scan(&mt.Month, &mt.Credits, &mt.Debits); err != nil {
			return nil, fmt.Errorf("MonthlyTotals: scan: %w", err)
		}
		totals = append(totals, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MonthlyTotals: rows: %w", err)
	}
	return totals, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.Scan(
		&t.ID, &t.PersonID, &t.Direction, &t.Kind, &t.Amount,
		&t.Description, &t.Category,
		&t.OccurredAt, &t.CreatedAt, &t.ReversedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
