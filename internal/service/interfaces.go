package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/money-tracker/internal/auth"
	"github.com/josh-kwaku/money-tracker/internal/domain"
)

type personStore interface {
	Create(ctx context.Context, p *domain.Person) error
	GetByID(ctx context.Context, id int64) (*domain.Person, error)
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*domain.Person, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type profileStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Person, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id int64, fullName, email string) (*domain.Person, error)
}

type balanceStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Person, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Person, error)
	AdjustBalance(ctx context.Context, tx *sql.Tx, id int64, delta decimal.Decimal) (decimal.Decimal, error)
}

type transactionStore interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	GetByIDAndOwner(ctx context.Context, id, personID int64) (*domain.Transaction, error)
	GetByIDAndOwnerForUpdate(ctx context.Context, tx *sql.Tx, id, personID int64) (*domain.Transaction, error)
	MarkReversed(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error
	List(ctx context.Context, personID int64, f domain.TransactionFilter) ([]domain.Transaction, int, error)
	Summarize(ctx context.Context, personID int64, rng domain.DateRange) (*domain.Summary, error)
	Categories(ctx context.Context, personID int64) ([]string, error)
	DebitsByCategory(ctx context.Context, personID int64, rng domain.DateRange) ([]domain.CategoryTotal, error)
	MonthlyTotals(ctx context.Context, personID int64, rng domain.DateRange) ([]domain.MonthTotal, error)
}

type tokenCodec interface {
	Issue(subject int64, role domain.Role, kind auth.Kind, ttl time.Duration) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// PasswordHasher is the one-way digest used for stored credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}
