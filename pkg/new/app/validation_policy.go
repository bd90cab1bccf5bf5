package app

import (
	"time"

	"github.com/pkg/errors"
)

const DefaultMaxCacheAgeInDays = 7

// ValidationPolicy decides whether a cached feed is still fresh. Age is
// counted in calendar days in the policy's location, so a feed saved at
// 23:00 is one day old at 23:00 the next day regardless of DST changes.
type ValidationPolicy struct {
	maxAgeDays int
	location   *time.Location
}

func NewValidationPolicy(maxAgeDays int, location *time.Location) (ValidationPolicy, error) {
	if maxAgeDays <= 0 {
		return ValidationPolicy{}, errors.New("max cache age must be a positive number of days")
	}

	if location == nil {
		return ValidationPolicy{}, errors.New("location can't be nil")
	}

	return ValidationPolicy{maxAgeDays: maxAgeDays, location: location}, nil
}

func DefaultValidationPolicy() ValidationPolicy {
	return ValidationPolicy{maxAgeDays: DefaultMaxCacheAgeInDays, location: time.UTC}
}

func (p ValidationPolicy) IsZero() bool {
	return p.maxAgeDays == 0
}

// IsValid reports whether a feed saved at timestamp can still be used at now.
// A timestamp exactly maxAgeDays old is already expired.
func (p ValidationPolicy) IsValid(now, timestamp time.Time) bool {
	maxAge := timestamp.In(p.location).AddDate(0, 0, p.maxAgeDays)
	return now.Before(maxAge)
}
