// pkg/core/timestamp.go
package core

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// zonedLayout matches the offset form written for new corrections.
	zonedLayout = "2006-01-02T15:04:05.9999999Z07:00"
	// localLayout is the offset-less form found in hand-written data files.
	localLayout = "2006-01-02T15:04:05.9999999"
)

// Timestamp is the time of an update record. A parsed timestamp keeps its
// source text and is written back byte for byte; it also remembers whether
// that text had a UTC offset.
type Timestamp struct {
	time.Time
	local bool
	raw   string
}

// NewTimestamp wraps t; it is written with its offset.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Zoneless reports whether the timestamp carries no UTC offset.
func (t Timestamp) Zoneless() bool { return t.local }

func (t Timestamp) String() string {
	if t.raw != "" {
		return t.raw
	}
	if t.local {
		return t.Time.Format(localLayout)
	}
	return t.Time.Format(zonedLayout)
}

// MarshalJSON writes the timestamp in the form it was read.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// ParseTimestamp accepts RFC 3339 timestamps with or without an offset.
// Offset-less values are read in the local zone.
func ParseTimestamp(s string) (Timestamp, error) {
	if parsed, err := time.Parse(zonedLayout, s); err == nil {
		return Timestamp{Time: parsed, raw: s}, nil
	}
	parsed, err := time.ParseInLocation(localLayout, s, time.Local)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return Timestamp{Time: parsed, local: true, raw: s}, nil
}

// UnmarshalJSON accepts RFC 3339 timestamps with or without an offset.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
