package handler

import (
	"net/url"
	"strconv"
	"time"

	"github.com/josh-kwaku/money-tracker/internal/domain"
)

const dateOnly = "2006-01-02"

// parseDateRange reads from/to as RFC 3339 timestamps or plain dates. A plain
// "to" date includes the whole day.
func parseDateRange(q url.Values) (domain.DateRange, []FieldError) {
	var (
		rng  domain.DateRange
		errs []FieldError
	)

	if v := q.Get("from"); v != "" {
		from, _, err := parseTime(v)
		if err != nil {
			errs = append(errs, FieldError{Field: "from", Message: "must be RFC 3339 or YYYY-MM-DD"})
		} else {
			rng.From = &from
		}
	}
	if v := q.Get("to"); v != "" {
		to, wholeDay, err := parseTime(v)
		if err != nil {
			errs = append(errs, FieldError{Field: "to", Message: "must be RFC 3339 or YYYY-MM-DD"})
		} else {
			if wholeDay {
				to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
			}
			rng.To = &to
		}
	}
	return rng, errs
}

func parseTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateOnly, v)
	return t, true, err
}

func parsePage(q url.Values) (limit, offset int, errs []FieldError) {
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, FieldError{Field: "limit", Message: "must be a positive integer"})
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "offset", Message: "must be a non-negative integer"})
		}
		offset = n
	}
	return limit, offset, errs
}

func parseIntParam(q url.Values, name string, lo, hi int) (int, *FieldError) {
	v := q.Get(name)
	if v == "" {
		return 0, &FieldError{Field: name, Message: "required"}
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, &FieldError{Field: name, Message: "must be between " + strconv.Itoa(lo) + " and " + strconv.Itoa(hi)}
	}
	return n, nil
}
