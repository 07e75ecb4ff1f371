// Package busday derives the operational business day from a timestamp.
//
// The warehouse works in a fixed-offset operating timezone; the business
// day boundary is midnight in that offset, not UTC. The offset is explicit
// configuration so the core stays deployable in other regions and testable
// with injected clocks.
package busday

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Offset is a fixed UTC offset of the operating timezone.
type Offset struct {
	loc *time.Location
}

// DefaultOffset is the historical operating offset (UTC+5).
func DefaultOffset() Offset {
	return Offset{loc: time.FixedZone("UTC+05:00", 5*3600)}
}

// ParseOffset parses offsets of the form "+05:00", "-03:30", "+00:00".
func ParseOffset(s string) (Offset, error) {
	s = strings.TrimSpace(s)
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' {
		return Offset{}, fmt.Errorf("invalid offset %q, want ±HH:MM", s)
	}
	hours, err := strconv.Atoi(s[1:3])
	if err != nil {
		return Offset{}, fmt.Errorf("invalid offset hours: %w", err)
	}
	minutes, err := strconv.Atoi(s[4:6])
	if err != nil {
		return Offset{}, fmt.Errorf("invalid offset minutes: %w", err)
	}
	if hours > 14 || minutes > 59 {
		return Offset{}, fmt.Errorf("offset %q out of range", s)
	}
	secs := hours*3600 + minutes*60
	if s[0] == '-' {
		secs = -secs
	}
	return Offset{loc: time.FixedZone("UTC"+s, secs)}, nil
}

// Location returns the fixed-zone location for the offset.
func (o Offset) Location() *time.Location {
	if o.loc == nil {
		return DefaultOffset().loc
	}
	return o.loc
}

// Day returns the calendar day of t in the operating timezone,
// truncated to midnight. Orders scheduled after the local midnight
// belong to the next business day.
func (o Offset) Day(t time.Time) time.Time {
	local := t.In(o.Location())
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two instants fall on the same business day.
func (o Offset) SameDay(a, b time.Time) bool {
	return o.Day(a).Equal(o.Day(b))
}
