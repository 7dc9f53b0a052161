package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/logging"
	"github.com/josh-kwaku/money-tracker/internal/service"
)

type ledgerService interface {
	Apply(ctx context.Context, req service.ApplyRequest) (*domain.Transaction, error)
	Reverse(ctx context.Context, personID, transactionID int64) (*domain.Transaction, error)
	Get(ctx context.Context, personID, transactionID int64) (*domain.Transaction, error)
	List(ctx context.Context, personID int64, f domain.TransactionFilter) ([]domain.Transaction, int, error)
	Summary(ctx context.Context, personID int64, rng domain.DateRange) (*domain.Summary, error)
	Categories(ctx context.Context, personID int64) ([]string, error)
	CategoryBreakdown(ctx context.Context, personID int64, year int, month time.Month) ([]domain.CategoryTotal, error)
	MonthlyTotals(ctx context.Context, personID int64, year int) ([]domain.MonthTotal, error)
}

type TransactionHandler struct {
	ledger ledgerService
}

func NewTransactionHandler(ledger ledgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

type createTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Direction   string          `json:"direction"`
	Description string          `json:"description"`
	Category    *string         `json:"category"`
	OccurredAt  *time.Time      `json:"occurred_at"`
}

func (r createTransactionRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Type == "" && r.Direction == "" {
		errs = append(errs, FieldError{Field: "type", Message: "type or direction is required"})
	}
	if r.Type != "" && !domain.Kind(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "must be INCOME, EXPENSE, TRANSFER, SEND or RECEIVE"})
	}
	if r.Direction != "" {
		if _, ok := domain.ParseDirection(r.Direction); !ok {
			errs = append(errs, FieldError{Field: "direction", Message: "must be credit or debit"})
		}
	}
	if strings.TrimSpace(r.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "required"})
	} else if utf8.RuneCountInString(r.Description) > 255 {
		errs = append(errs, FieldError{Field: "description", Message: "must be at most 255 characters"})
	}
	if r.Category != nil && utf8.RuneCountInString(*r.Category) > 50 {
		errs = append(errs, FieldError{Field: "category", Message: "must be at most 50 characters"})
	}
	return errs
}

// direction prefers an explicit direction and otherwise derives it from the
// type. A contradiction between the two is rejected by the ledger.
func (r createTransactionRequest) direction() domain.Direction {
	if d, ok := domain.ParseDirection(r.Direction); ok {
		return d
	}
	return domain.Kind(r.Type).Direction()
}

type transactionDTO struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Direction   string     `json:"direction"`
	Amount      string     `json:"amount"`
	Description string     `json:"description"`
	Category    *string    `json:"category"`
	OccurredAt  time.Time  `json:"occurred_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Reversed    bool       `json:"reversed"`
	ReversedAt  *time.Time `json:"reversed_at"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:          t.ID,
		Type:        string(t.Kind),
		Direction:   t.Direction.String(),
		Amount:      t.Amount.StringFixed(2),
		Description: t.Description,
		Category:    t.Category,
		OccurredAt:  t.OccurredAt,
		CreatedAt:   t.CreatedAt,
		Reversed:    t.Reversed(),
		ReversedAt:  t.ReversedAt,
	}
}

type summaryDTO struct {
	TotalCredits string `json:"total_credits"`
	TotalDebits  string `json:"total_debits"`
	Net          string `json:"net"`
	Count        int    `json:"count"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	personID, appErr := personFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	applyReq := service.ApplyRequest{
		PersonID:    personID,
		Amount:      req.Amount,
		Direction:   req.direction(),
		Kind:        domain.Kind(req.Type),
		Description: req.Description,
		Category:    req.Category,
	}
	if req.OccurredAt != nil {
		applyReq.OccurredAt = *req.OccurredAt
	}

	t, err := h.ledger.Apply(r.Context(), applyReq)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to apply transaction", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransactionDTO(t))
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	personID, appErr := personFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	txID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	t, err := h.ledger.Get(r.Context(), personID, txID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(t))
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	personID, appErr := personFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	q := r.URL.Query()
	rng, fields := parseDateRange(q)
	limit, offset, pageFields := parsePage(q)
	fields = append(fields, pageFields...)
	includeReversed, err := strconv.ParseBool(q.Get("include_reversed"))
	if err != nil && q.Get("include_reversed") != "" {
		fields = append(fields, FieldError{Field: "include_reversed", Message: "must be a boolean"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	f := domain.TransactionFilter{Range: rng, Limit: limit, Offset: offset, IncludeReversed: includeReversed}.Normalized()
	txs, total, err := h.ledger.List(r.Context(), personID, f)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to list transactions", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transactionDTO, len(txs))
	for i := range txs {
		dtos[i] = toTransactionDTO(&txs[i])
	}

	RespondSuccess(w, http.StatusOK, pageDTO[transactionDTO]{Items: dtos, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *TransactionHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	personID, appErr := personFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	txID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	t, err := h.ledger.Reverse(r.Context(), personID, txID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to reverse transaction", "transaction_id", txID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(t))
}

func (h *TransactionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	personID, appErr := personFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	rng, fields := parseDateRange(r.URL.Query())
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	s, err := h.ledger.Summary(r.Context(), personID, rng)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, summaryDTO{
		TotalCredits: s.TotalCredits.StringFixed(2),
		TotalDebits:  s.TotalDebits.StringFixed(2),
		Net:          s.Net.StringFixed(2),
		Count:        s.Count,
	})
}

func (h *TransactionHandler) Categories(w http.ResponseWriter, r *http.Request) {
	personID, appErr := personFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	categories, err := h.ledger.Categories(r.Context(), personID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, categories)
}
