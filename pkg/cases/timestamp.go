package cases

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/agentstation/casesync/pkg/errors"
)

// Timestamp is a wall-clock instant as carried on the wire.
//
// It encodes as RFC 3339 with nanoseconds in UTC. Decoding also accepts the
// locale-formatted strings emitted by older servers.
type Timestamp struct {
	time.Time
}

// legacyLayouts are the locale formats older servers serialised dates with.
var legacyLayouts = []string{
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006 15:04",
}

// NewTimestamp wraps t, normalised to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// At returns a pointer to a Timestamp for t, for optional fields.
func At(t time.Time) *Timestamp {
	ts := NewTimestamp(t)
	return &ts
}

// ParseTimestamp parses s as RFC 3339 or one of the legacy layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewTimestamp(t), nil
	}
	// Legacy strings carry no zone and were produced in UTC.
	// Newer locale data puts a narrow no-break space before AM/PM.
	normalized := strings.ReplaceAll(s, "\u202f", " ")
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, normalized, time.UTC); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, errors.NewParseError("timestamp", "", "unrecognised timestamp "+s, nil)
}

// String returns the RFC 3339 form.
func (t Timestamp) String() string {
	return t.UTC().Format(time.RFC3339Nano)
}

// After reports whether t is strictly later than u.
func (t Timestamp) After(u Timestamp) bool {
	return t.Time.After(u.Time)
}

// Before reports whether t is strictly earlier than u.
func (t Timestamp) Before(u Timestamp) bool {
	return t.Time.Before(u.Time)
}

// Equal reports whether t and u are the same instant.
func (t Timestamp) Equal(u Timestamp) bool {
	return t.Time.Equal(u.Time)
}

// MarshalText implements encoding.TextMarshaler.
func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timestamp) UnmarshalText(text []byte) error {
	parsed, err := ParseTimestamp(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.WrapParse("timestamp", "", err)
	}
	return t.UnmarshalText([]byte(s))
}
