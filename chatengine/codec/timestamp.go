// Package codec converts in-memory temporal values to and from the
// persistable string form used by session snapshots.
//
// The wire form is RFC 3339 with nanoseconds: sortable, parsable, and
// stable across application versions. Decoding also accepts the legacy
// epoch-milliseconds number form that older snapshots carried.
package codec

import (
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the canonical persisted form for instants.
const TimeLayout = time.RFC3339Nano

// EncodeTime converts an instant to its persisted string form.
// The zero instant encodes to the empty string.
func EncodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// DecodeTime parses the persisted string form back into an instant.
// The empty string decodes to the zero instant.
func DecodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(TimeLayout, s)
}

// Timestamp is an instant that marshals to the persisted string form.
//
// Unmarshaling is tolerant: an unparsable value decodes to the zero
// instant instead of failing the surrounding document, so a single bad
// field never aborts a whole restore.
type Timestamp time.Time

// Now returns the current instant as a Timestamp.
func Now() Timestamp {
	return Timestamp(time.Now().UTC())
}

// At wraps an instant as a Timestamp.
func At(t time.Time) Timestamp {
	return Timestamp(t)
}

// Time returns the underlying instant.
func (ts Timestamp) Time() time.Time {
	return time.Time(ts)
}

// IsZero reports whether the timestamp is the zero instant.
func (ts Timestamp) IsZero() bool {
	return time.Time(ts).IsZero()
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(EncodeTime(time.Time(ts)))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*ts = Timestamp(time.Time{})
		return nil
	}

	if unquoted, err := strconv.Unquote(raw); err == nil {
		t, err := DecodeTime(unquoted)
		if err != nil {
			*ts = Timestamp(time.Time{})
			return nil
		}
		*ts = Timestamp(t)
		return nil
	}

	// Legacy snapshots stored epoch milliseconds as a bare number.
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
		*ts = Timestamp(time.UnixMilli(ms).UTC())
		return nil
	}

	*ts = Timestamp(time.Time{})
	return nil
}
