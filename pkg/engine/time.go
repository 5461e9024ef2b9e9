package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventTime wraps time.Time with decoding tolerant of the engine's mixed
// timestamp encodings: epoch seconds as a JSON number, RFC 3339 strings,
// and naive ISO 8601 strings without a zone (treated as UTC).
type EventTime struct {
	time.Time
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *EventTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}

	if s[0] == '"' {
		raw := strings.Trim(s, `"`)
		for _, layout := range isoLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				t.Time = parsed.UTC()
				return nil
			}
		}
		// some frames quote the epoch
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			t.Time = epochToTime(f)
			return nil
		}
		return fmt.Errorf("engine: unsupported timestamp %q", raw)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("engine: unsupported timestamp %s", s)
	}
	t.Time = epochToTime(f)
	return nil
}

func (t EventTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.Time.UTC().Format(time.RFC3339Nano))), nil
}

func epochToTime(f float64) time.Time {
	sec := int64(f)
	nsec := int64((f - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}
