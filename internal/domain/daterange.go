package domain

import "time"

// DateRange bounds a query by occurred_at. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return ErrInvalidRange
	}
	return nil
}

// MonthRange covers the calendar month in UTC, end-inclusive to the last nanosecond.
func MonthRange(year int, month time.Month) DateRange {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return DateRange{From: &from, To: &to}
}

func YearRange(year int) DateRange {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0).Add(-time.Nanosecond)
	return DateRange{From: &from, To: &to}
}
