package crm

import (
	"strings"
	"time"
)

// ParseDate parses a YYYY-MM-DD value.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, NewValidationError("date", "use format YYYY-MM-DD")
	}
	return t, nil
}

// CheckDateOrder returns a ValidationError naming endField when end falls before start.
// Blank values are never an error. Unparseable values are compared as text.
func CheckDateOrder(endField, start, end, message string) error {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil
	}
	s, errS := time.Parse(DateLayout, start)
	e, errE := time.Parse(DateLayout, end)
	inverted := false
	if errS == nil && errE == nil {
		inverted = e.Before(s)
	} else {
		inverted = end < start
	}
	if inverted {
		return NewValidationError(endField, message)
	}
	return nil
}

// Today returns the calendar date of now in YYYY-MM-DD form.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}
