package ledger

import (
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// ParseOptionalDate parses s, treating the empty string as "no date".
func ParseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Span is a closed date interval. A nil End means open-ended.
type Span struct {
	Start time.Time
	End   *time.Time
}

// NewSpan normalizes both ends to calendar dates and validates End >= Start.
func NewSpan(start time.Time, end *time.Time) (Span, error) {
	s := Span{Start: Day(start)}
	if end != nil {
		e := Day(*end)
		if e.Before(s.Start) {
			return Span{}, NewValidationError("end_date", "must be on or after start_date")
		}
		s.End = &e
	}
	return s, nil
}

// At is the single-day span for d.
func At(d time.Time) Span {
	d = Day(d)
	return Span{Start: d, End: &d}
}

// Overlaps reports whether two closed intervals share at least one day.
func (s Span) Overlaps(o Span) bool {
	if s.End != nil && o.Start.After(*s.End) {
		return false
	}
	if o.End != nil && s.Start.After(*o.End) {
		return false
	}
	return true
}

// Contains reports whether d falls inside the span.
func (s Span) Contains(d time.Time) bool {
	return s.Overlaps(At(d))
}

// Days is the inclusive day count, or 0 for an open-ended span.
func (s Span) Days() int {
	if s.End == nil {
		return 0
	}
	return int((s.End.Unix()-s.Start.Unix())/secondsPerDay) + 1
}

// Spans may exceed time.Duration's ~292 year range.
const secondsPerDay = 24 * 60 * 60
