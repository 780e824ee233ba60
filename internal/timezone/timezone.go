// Package timezone provides timezone utilities for the assistant.
//
// All dates the assistant reasons about ("today", "tomorrow at 15:00") are
// resolved in the configured business timezone, which defaults to Almaty.
package timezone

import (
	"fmt"
	"time"
)

// DefaultTimezone is the IANA identifier used when none is configured.
const DefaultTimezone = "Asia/Almaty"

// fallback is used when the host has no tz database.
var fallback = time.FixedZone("UTC+5", 5*60*60)

// DefaultLocation returns the default business location.
func DefaultLocation() *time.Location {
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return fallback
}

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Almaty").
// An empty identifier yields the default location.
// If the timezone is invalid, returns the default location and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	switch tz {
	case "":
		return DefaultLocation(), nil
	case "UTC":
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return DefaultLocation(), fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// NowIn returns the current time in the given location.
func NowIn(loc *time.Location) time.Time {
	if loc == nil {
		loc = DefaultLocation()
	}
	return time.Now().In(loc)
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last minute of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(23*time.Hour + 59*time.Minute)
}
