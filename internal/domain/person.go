package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Person struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	Role         Role
	Balance      decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
