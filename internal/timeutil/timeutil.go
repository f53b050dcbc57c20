// Package timeutil provides the canonical time representation used by
// the whole pipeline.
//
// All timestamps that cross a component boundary are "canonical local"
// values: the deployment's wall-clock reading with no attached offset.
// They are carried as time.Time values pinned to a private marker
// location, so a canonical value can be recognized and normalization is
// idempotent. Mixing zoned and canonical values in a comparison is a
// programming error, not a runtime condition.
package timeutil

import (
	"fmt"
	"time"
)

// canonicalLoc marks a time.Time as already normalized. It has a zero
// offset, so Unix-based arithmetic on canonical values compares wall
// clocks directly.
var canonicalLoc = time.FixedZone("local-wall", 0)

// DefaultZone is the deployment wall-clock zone used when none is
// configured.
const DefaultZone = "Asia/Seoul"

// Normalizer converts arbitrary timestamps into canonical local time.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer creates a Normalizer for the given IANA zone name.
// An empty name selects DefaultZone.
func NewNormalizer(zone string) (*Normalizer, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", zone, err)
	}
	return &Normalizer{loc: loc}, nil
}

// ToCanonical converts t into canonical local time. Values that are
// already canonical are returned unchanged, so the operation is
// idempotent. It never fails: every well-formed time.Time has a wall
// clock in the deployment zone.
func (n *Normalizer) ToCanonical(t time.Time) time.Time {
	if IsCanonical(t) {
		return t
	}
	lt := t.In(n.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(),
		lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), canonicalLoc)
}

// NowCanonical returns the current canonical local time.
func (n *Normalizer) NowCanonical() time.Time {
	return n.ToCanonical(time.Now())
}

// IsCanonical reports whether t already carries the canonical marker.
func IsCanonical(t time.Time) bool {
	return t.Location() == canonicalLoc
}

// FloorToMinute truncates the seconds and sub-second components.
// The input's canonical/zoned status is preserved.
func FloorToMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// ParseQuoteTime builds a canonical time from the provider's split
// date ("20060102") and clock ("150405") fields. Provider quote times
// are already expressed in the deployment zone, so no conversion is
// applied. Malformed input is an error, never coerced.
func ParseQuoteTime(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation("20060102150405", date+clock, canonicalLoc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse quote time %q %q: %w", date, clock, err)
	}
	return t, nil
}

// Canonical builds a canonical time from components. Intended for
// tests and fixtures.
func Canonical(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, canonicalLoc)
}
