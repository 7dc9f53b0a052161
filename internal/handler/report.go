package handler

import (
	"net/http"
	"time"
)

type categoryTotalDTO struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type monthTotalDTO struct {
	Month   string `json:"month"`
	Credits string `json:"credits"`
	Debits  string `json:"debits"`
	Net     string `json:"net"`
}

// CategoryReport serves debit totals per category for ?year=&month=.
func (h *TransactionHandler) CategoryReport(w http.ResponseWriter, r *http.Request) {
	personID, appErr := personFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	q := r.URL.Query()
	var fields []FieldError
	year, fe := parseIntParam(q, "year", 1, 9999)
	if fe != nil {
		fields = append(fields, *fe)
	}
	month, fe := parseIntParam(q, "month", 1, 12)
	if fe != nil {
		fields = append(fields, *fe)
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	totals, err := h.ledger.CategoryBreakdown(r.Context(), personID, year, time.Month(month))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]categoryTotalDTO, len(totals))
	for i, t := range totals {
		dtos[i] = categoryTotalDTO{Category: t.Category, Total: t.Total.StringFixed(2)}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *TransactionHandler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	personID, appErr := personFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	year, fe := parseIntParam(r.URL.Query(), "year", 1, 9999)
	if fe != nil {
		RespondValidationError(w, []FieldError{*fe})
		return
	}

	totals, err := h.ledger.MonthlyTotals(r.Context(), personID, year)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]monthTotalDTO, len(totals))
	for i, t := range totals {
		dtos[i] = monthTotalDTO{
			Month:   t.Month,
			Credits: t.Credits.StringFixed(2),
			Debits:  t.Debits.StringFixed(2),
			Net:     t.Credits.Sub(t.Debits).StringFixed(2),
		}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
