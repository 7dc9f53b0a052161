package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("amount must be greater than zero with at most two decimal places")
	ErrInvalidRange       = errors.New("range start is after range end")
	ErrAlreadyReversed    = errors.New("transaction already reversed")
	ErrLimitExceeded      = errors.New("transaction limit exceeded")
	ErrDuplicateIdentity  = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidRequest     = errors.New("invalid request")
)
