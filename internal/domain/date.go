package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar key format used for every date-scoped record.
const DateLayout = "2006-01-02"

// DateKey returns the UTC calendar date of t.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ValidateDate checks that value is a real calendar date in YYYY-MM-DD form.
func ValidateDate(value string) error {
	if len(value) != len(DateLayout) {
		return ErrInvalidDate
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return ErrInvalidDate
	}
	if parsed.Format(DateLayout) != value {
		return ErrInvalidDate
	}
	return nil
}

// ResolveEffectiveDate returns the date a request plays against. An empty
// override means today; a non-empty override is honoured only when allowed.
func ResolveEffectiveDate(override string, allowOverride bool, now time.Time) (string, error) {
	normalized := strings.TrimSpace(override)
	if normalized == "" {
		return DateKey(now), nil
	}
	if !allowOverride {
		return "", ErrDateOverrideNotAllowed
	}
	if err := ValidateDate(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
