package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the sign applied to a transaction's non-negative amount.
type Direction int

const (
	Credit Direction = 1
	Debit  Direction = -1
)

func (d Direction) IsValid() bool {
	return d == Credit || d == Debit
}

func (d Direction) String() string {
	switch d {
	case Credit:
		return "credit"
	case Debit:
		return "debit"
	default:
		return "unknown"
	}
}

func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "credit":
		return Credit, true
	case "debit":
		return Debit, true
	default:
		return 0, false
	}
}

type Kind string

const (
	KindIncome   Kind = "INCOME"
	KindExpense  Kind = "EXPENSE"
	KindTransfer Kind = "TRANSFER"
	KindSend     Kind = "SEND"
	KindReceive  Kind = "RECEIVE"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer, KindSend, KindReceive:
		return true
	}
	return false
}

// Direction returns the fixed sign of the kind.
func (k Kind) Direction() Direction {
	switch k {
	case KindIncome, KindReceive:
		return Credit
	default:
		return Debit
	}
}

// DefaultKind labels a transaction created from a bare direction.
func DefaultKind(d Direction) Kind {
	if d == Credit {
		return KindIncome
	}
	return KindExpense
}

type Transaction struct {
	ID          int64
	PersonID    int64
	Direction   Direction
	Kind        Kind
	Amount      decimal.Decimal
	Description string
	Category    *string
	OccurredAt  time.Time
	CreatedAt   time.Time
	ReversedAt  *time.Time
}

func (t *Transaction) Reversed() bool {
	return t.ReversedAt != nil
}

// SignedAmount is the transaction's effect on the owner's balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromInt(int64(t.Direction)))
}

type Summary struct {
	TotalCredits decimal.Decimal
	TotalDebits  decimal.Decimal
	Net          decimal.Decimal
	Count        int
}

type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

type MonthTotal struct {
	Month   string
	Credits decimal.Decimal
	Debits  decimal.Decimal
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type TransactionFilter struct {
	Range           DateRange
	Limit           int
	Offset          int
	IncludeReversed bool
}

// Normalized applies the default page size, the page size cap and a
// non-negative offset.
func (f TransactionFilter) Normalized() TransactionFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	f.Limit = min(f.Limit, MaxPageSize)
	f.Offset = max(f.Offset, 0)
	return f
}
