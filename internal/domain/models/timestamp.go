package models

import (
	"bytes"
	"encoding/json"
	"time"

	"LeoneAI/pkg/util"
)

// Timestamp decodes the backend's mixed time encodings: RFC3339, naive
// ISO-8601 (read as UTC), unix seconds or milliseconds.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t.Time = ParseTimestamp(s)
		return nil
	}
	t.Time = ParseTimestamp(string(b))
	return nil
}

// ParseTimestamp is util.ParseTime returning zero on failure.
func ParseTimestamp(s string) time.Time {
	if t, ok := util.ParseTime(s); ok {
		return t
	}
	return time.Time{}
}
