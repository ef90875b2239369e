package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Wire formats inherited from the persisted JSON files.
const (
	dateLayout      = "02/01/2006"
	timestampLayout = "02/01/2006 15:04:05"
)

// Date is a calendar date without a time component, serialized as DD/MM/YYYY.
type Date struct {
	t time.Time
}

// ParseDate parses a DD/MM/YYYY string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("catalog: parse date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return Date{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d falls after other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports whether two dates are the same calendar day.
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// Time exposes the underlying time at midnight UTC.
func (d Date) Time() time.Time { return d.t }

// String renders the wire format.
func (d Date) String() string { return d.t.Format(dateLayout) }

// Compact renders the date as DDMMYYYY, used in report filenames.
func (d Date) Compact() string { return d.t.Format("02012006") }

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Timestamp is a wall-clock instant serialized as DD/MM/YYYY HH:MM:SS.
type Timestamp struct {
	t time.Time
}

// TimestampOf wraps t, dropping sub-second precision.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{t: t.Truncate(time.Second)}
}

// IsZero reports whether the timestamp is unset.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// Time exposes the underlying instant.
func (ts Timestamp) Time() time.Time { return ts.t }

// Date truncates the timestamp to its calendar date.
func (ts Timestamp) Date() Date { return DateOf(ts.t) }

// String renders the wire format.
func (ts Timestamp) String() string { return ts.t.Format(timestampLayout) }

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ts.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*ts = Timestamp{}
		return nil
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		// Older exit files stored bare dates in the timestamp slot.
		d, derr := ParseDate(s)
		if derr != nil {
			return fmt.Errorf("catalog: parse timestamp %q: %w", s, err)
		}
		*ts = Timestamp{t: d.Time()}
		return nil
	}
	*ts = Timestamp{t: t}
	return nil
}
