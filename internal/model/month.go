package model

import (
	"fmt"
	"time"
)

// monthLayout is the calendar-month key format. Keys sort
// lexicographically in chronological order.
const monthLayout = "2006-01"

// MonthOf returns the calendar-month key for a date.
func MonthOf(t time.Time) string {
	return t.Format(monthLayout)
}

// ValidateMonth checks that s is a well-formed YYYY-MM month key.
func ValidateMonth(s string) error {
	if _, err := time.Parse(monthLayout, s); err != nil {
		return fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return nil
}

// NextMonth returns the month following m, rolling December into January
// of the next year.
func NextMonth(m string) (string, error) {
	t, err := time.Parse(monthLayout, m)
	if err != nil {
		return "", fmt.Errorf("invalid month %q: expected YYYY-MM", m)
	}
	return t.AddDate(0, 1, 0).Format(monthLayout), nil
}

// MonthRange returns every calendar month from first to last inclusive,
// strictly increasing with no gaps.
func MonthRange(first, last string) ([]string, error) {
	if err := ValidateMonth(first); err != nil {
		return nil, err
	}
	if err := ValidateMonth(last); err != nil {
		return nil, err
	}
	if first > last {
		return nil, fmt.Errorf("month range %s..%s: first month after last", first, last)
	}

	months := []string{first}
	for months[len(months)-1] != last {
		next, err := NextMonth(months[len(months)-1])
		if err != nil {
			return nil, err
		}
		months = append(months, next)
	}
	return months, nil
}
