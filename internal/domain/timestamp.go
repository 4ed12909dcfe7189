package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

var timestampLayouts = []struct {
	layout   string
	naive    bool
	dateOnly bool
}{
	{time.RFC3339Nano, false, false},
	{"2006-01-02T15:04:05.999999999", true, false},
	{"2006-01-02 15:04:05", true, false},
	{time.DateOnly, true, true},
}

// Timestamp is a point in time sent by the backend. Values without a zone
// (LocalDate, LocalDateTime) are naive and are placed in the caller's
// location by At. DateOnly values denote a whole calendar day.
type Timestamp struct {
	Time     time.Time
	Naive    bool
	DateOnly bool
}

// ParseTimestamp parses one of the formats the backend emits.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, l := range timestampLayouts {
		t, err := time.Parse(l.layout, s)
		if err == nil {
			return Timestamp{Time: t, Naive: l.naive, DateOnly: l.dateOnly}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// MustDate builds a date-only Timestamp; used for fixtures and defaults.
func MustDate(s string) Timestamp {
	ts, err := ParseTimestamp(s)
	if err != nil || !ts.DateOnly {
		panic(fmt.Sprintf("domain: invalid date %q", s))
	}
	return ts
}

// IsZero reports whether the timestamp is unset.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero()
}

// At returns the instant in loc. Zoned timestamps are returned unchanged.
func (t Timestamp) At(loc *time.Location) time.Time {
	if !t.Naive {
		return t.Time
	}
	y, m, d := t.Time.Date()
	hh, mm, ss := t.Time.Clock()
	return time.Date(y, m, d, hh, mm, ss, t.Time.Nanosecond(), loc)
}

// UnmarshalJSON accepts a string in any supported layout, or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	ts, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = ts
	return nil
}

// MarshalJSON writes the timestamp back in the layout it was read in.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case t.IsZero():
		return []byte("null"), nil
	case t.DateOnly:
		return json.Marshal(t.Time.Format(time.DateOnly))
	case t.Naive:
		return json.Marshal(t.Time.Format("2006-01-02T15:04:05"))
	default:
		return json.Marshal(t.Time.Format(time.RFC3339))
	}
}
