package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/money-tracker/internal/domain"
)

const personColumns = `id, username, email, password_hash, full_name, role, balance, created_at, updated_at`

type PersonRepository struct {
	db *sql.DB
}

func NewPersonRepository(db *sql.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

// Create inserts p and fills in its generated fields. A unique violation on
// username or email is reported as domain.ErrDuplicateIdentity.
func (r *PersonRepository) Create(ctx context.Context, p *domain.Person) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO persons (username, email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, balance, created_at, updated_at`,
		p.Username, p.Email, p.PasswordHash, p.FullName, p.Role,
	).Scan(&p.ID, &p.Balance, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateIdentity)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id int64) (*domain.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = $1`, id,
	)
	p, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

func (r *PersonRepository) GetByUsername(ctx context.Context, username string) (*domain.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE username = $1`, username,
	)
	p, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByUsername: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByUsername: %w", err)
	}
	return p, nil
}

// GetByUsernameOrEmail prefers an exact username match over an email match.
func (r *PersonRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*domain.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons
		WHERE username = $1 OR email = lower($1)
		ORDER BY (username = $1) DESC
		LIMIT 1`, identifier,
	)
	p, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByUsernameOrEmail: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByUsernameOrEmail: %w", err)
	}
	return p, nil
}

func (r *PersonRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM persons WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsByUsername: %w", err)
	}
	return exists, nil
}

func (r *PersonRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM persons WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsByEmail: %w", err)
	}
	return exists, nil
}

func (r *PersonRepository) List(ctx context.Context, limit, offset int) ([]domain.Person, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM persons`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+personColumns+` FROM persons ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var persons []domain.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		persons = append(persons, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return persons, total, nil
}

// UpdateProfile overwrites the editable profile fields. An email held by
// another person is reported as domain.ErrDuplicateIdentity.
func (r *PersonRepository) UpdateProfile(ctx context.Context, id int64, fullName, email string) (*domain.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE persons SET full_name = $1, email = $2, updated_at = now()
		WHERE id = $3
		RETURNING `+personColumns,
		fullName, email, id,
	)
	p, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("UpdateProfile: %w", domain.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("UpdateProfile: %w", domain.ErrDuplicateIdentity)
		}
		return nil, fmt.Errorf("UpdateProfile: %w", err)
	}
	return p, nil
}

// GetForUpdate locks the person row until tx ends. Every balance mutation
// takes this lock first, which serializes them per person.
func (r *PersonRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Person, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = $1 FOR UPDATE`, id,
	)
	p, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return p, nil
}

// AdjustBalance adds delta in a single statement and returns the new balance.
func (r *PersonRepository) AdjustBalance(ctx context.Context, tx *sql.Tx, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`UPDATE persons SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance`,
		delta, id,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("AdjustBalance: %w", domain.ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("AdjustBalance: %w", err)
	}
	return balance, nil
}

func scanPerson(s scanner) (*domain.Person, error) {
	var p domain.Person
	err := s.Scan(
		&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.FullName,
		&p.Role, &p.Balance, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
