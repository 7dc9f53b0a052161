package testutil

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/money-tracker/internal/domain"
)

const TestPassword = "password123"

func SeedPerson(t *testing.T, db *sql.DB, username string, role domain.Role) *domain.Person {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	p := &domain.Person{
		Username:     username,
		Email:        username + "@test.com",
		PasswordHash: string(hash),
		FullName:     username,
		Role:         role,
	}
	err = db.QueryRow(
		`INSERT INTO persons (username, email, password_hash, full_name, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, balance, created_at, updated_at`,
		p.Username, p.Email, p.PasswordHash, p.FullName, p.Role,
	).Scan(&p.ID, &p.Balance, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		t.Fatalf("seed person %s: %v", username, err)
	}
	return p
}

func GetBalance(t *testing.T, db *sql.DB, personID int64) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM persons WHERE id = $1`, personID).Scan(&balance)
	if err != nil {
		t.Fatalf("get balance %d: %v", personID, err)
	}
	return balance
}

// SumActive is the balance implied by the person's non-reversed transactions.
func SumActive(t *testing.T, db *sql.DB, personID int64) decimal.Decimal {
	t.Helper()

	var sum decimal.Decimal
	err := db.QueryRow(
		`SELECT COALESCE(SUM(direction * amount), 0) FROM transactions
		 WHERE person_id = $1 AND reversed_at IS NULL`, personID,
	).Scan(&sum)
	if err != nil {
		t.Fatalf("sum active transactions %d: %v", personID, err)
	}
	return sum
}

func CountTransactions(t *testing.T, db *sql.DB, personID int64) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE person_id = $1`, personID).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions %d: %v", personID, err)
	}
	return count
}
