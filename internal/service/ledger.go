package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/money-tracker/internal/config"
	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/logging"
)

// Ledger is the only writer of person balances.
type Ledger struct {
	persons      balanceStore
	transactions transactionStore
	db           *sql.DB
	limits       config.Limits
	now          func() time.Time
}

func NewLedger(persons balanceStore, transactions transactionStore, db *sql.DB, limits config.Limits) *Ledger {
	return &Ledger{
		persons:      persons,
		transactions: transactions,
		db:           db,
		limits:       limits,
		now:          time.Now,
	}
}

type ApplyRequest struct {
	PersonID    int64
	Amount      decimal.Decimal
	Direction   domain.Direction
	Kind        domain.Kind
	Description string
	Category    *string
	OccurredAt  time.Time
}

func (s *Ledger) validateApply(req ApplyRequest) error {
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return fmt.Errorf("validateApply: %w", domain.ErrInvalidAmount)
	}
	if !req.Direction.IsValid() {
		return fmt.Errorf("validateApply: direction: %w", domain.ErrInvalidRequest)
	}
	if req.Kind != "" && (!req.Kind.IsValid() || req.Kind.Direction() != req.Direction) {
		return fmt.Errorf("validateApply: kind %q with %s: %w", req.Kind, req.Direction, domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("validateApply: description: %w", domain.ErrInvalidRequest)
	}

	if s.limits.MaxAmount.IsPositive() && req.Amount.GreaterThan(s.limits.MaxAmount) {
		return fmt.Errorf("validateApply: %w", domain.ErrLimitExceeded)
	}
	if req.Kind == domain.KindTransfer && s.limits.MaxTransferAmount.IsPositive() &&
		req.Amount.GreaterThan(s.limits.MaxTransferAmount) {
		return fmt.Errorf("validateApply: transfer: %w", domain.ErrLimitExceeded)
	}
	return nil
}

// Apply records a transaction and moves the balance by its signed amount in
// one database transaction.
func (s *Ledger) Apply(ctx context.Context, req ApplyRequest) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	if err := s.validateApply(req); err != nil {
		return nil, fmt.Errorf("Apply: %w", err)
	}

	kind := req.Kind
	if kind == "" {
		kind = domain.DefaultKind(req.Direction)
	}
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Apply: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.persons.GetForUpdate(ctx, tx, req.PersonID); err != nil {
		return nil, fmt.Errorf("Apply: %w", err)
	}

	t := &domain.Transaction{
		PersonID:    req.PersonID,
		Direction:   req.Direction,
		Kind:        kind,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		OccurredAt:  occurredAt.UTC(),
	}
	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("Apply: %w", err)
	}

	balance, err := s.persons.AdjustBalance(ctx, tx, req.PersonID, t.SignedAmount())
	if err != nil {
		return nil, fmt.Errorf("Apply: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Apply: commit: %w", err)
	}

	log.Info("transaction applied",
		"person_id", req.PersonID,
		"transaction_id", t.ID,
		"direction", t.Direction,
		"amount", t.Amount.StringFixed(2),
		"balance", balance.StringFixed(2),
	)
	return t, nil
}

// Reverse marks a transaction reversed and undoes its balance effect. A
// transaction owned by another person is reported as not found.
func (s *Ledger) Reverse(ctx context.Context, personID, transactionID int64) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Reverse: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.persons.GetForUpdate(ctx, tx, personID); err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}

	t, err := s.transactions.GetByIDAndOwnerForUpdate(ctx, tx, transactionID, personID)
	if err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}
	if t.Reversed() {
		return nil, fmt.Errorf("Reverse: %w", domain.ErrAlreadyReversed)
	}

	at := s.now().UTC()
	if err := s.transactions.MarkReversed(ctx, tx, t.ID, at); err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}

	balance, err := s.persons.AdjustBalance(ctx, tx, personID, t.SignedAmount().Neg())
	if err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Reverse: commit: %w", err)
	}
	t.ReversedAt = &at

	log.Info("transaction reversed",
		"person_id", personID,
		"transaction_id", t.ID,
		"balance", balance.StringFixed(2),
	)
	return t, nil
}

func (s *Ledger) Summary(ctx context.Context, personID int64, rng domain.DateRange) (*domain.Summary, error) {
	if err := rng.Validate(); err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}
	summary, err := s.transactions.Summarize(ctx, personID, rng)
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}
	return summary, nil
}

func (s *Ledger) Get(ctx context.Context, personID, transactionID int64) (*domain.Transaction, error) {
	t, err := s.transactions.GetByIDAndOwner(ctx, transactionID, personID)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return t, nil
}

func (s *Ledger) List(ctx context.Context, personID int64, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	f = f.Normalized()

	txs, total, err := s.transactions.List(ctx, personID, f)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	return txs, total, nil
}

func (s *Ledger) Categories(ctx context.Context, personID int64) ([]string, error) {
	categories, err := s.transactions.Categories(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("Categories: %w", err)
	}
	return categories, nil
}

// CategoryBreakdown totals debits per category for one calendar month.
func (s *Ledger) CategoryBreakdown(ctx context.Context, personID int64, year int, month time.Month) ([]domain.CategoryTotal, error) {
	if month < time.January || month > time.December || year < 1 {
		return nil, fmt.Errorf("CategoryBreakdown: %w", domain.ErrInvalidRequest)
	}
	totals, err := s.transactions.DebitsByCategory(ctx, personID, domain.MonthRange(year, month))
	if err != nil {
		return nil, fmt.Errorf("CategoryBreakdown: %w", err)
	}
	return totals, nil
}

func (s *Ledger) MonthlyTotals(ctx context.Context, personID int64, year int) ([]domain.MonthTotal, error) {
	if year < 1 {
		return nil, fmt.Errorf("MonthlyTotals: %w", domain.ErrInvalidRequest)
	}
	totals, err := s.transactions.MonthlyTotals(ctx, personID, domain.YearRange(year))
	if err != nil {
		return nil, fmt.Errorf("MonthlyTotals: %w", err)
	}
	return totals, nil
}

func (s *Ledger) Balance(ctx context.Context, personID int64) (decimal.Decimal, error) {
	p, err := s.persons.GetByID(ctx, personID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Balance: %w", err)
	}
	return p.Balance, nil
}
