package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// UTCTime stores timestamps in UTC regardless of the server timezone so that
// SQL comparisons (WHERE time < ?) behave the same on sqlite and mysql.
type UTCTime time.Time

const utcLayout = "2006-01-02 15:04:05.0000000"

func Now() UTCTime {
	return UTCTime(time.Now().UTC())
}

func (t UTCTime) Time() time.Time {
	return time.Time(t)
}

func (t UTCTime) Value() (driver.Value, error) {
	if time.Time(t).IsZero() {
		return nil, nil
	}
	return time.Time(t).UTC().Format(utcLayout), nil
}

func (t *UTCTime) Scan(v interface{}) error {
	if v == nil {
		*t = UTCTime(time.Time{})
		return nil
	}
	switch val := v.(type) {
	case time.Time:
		*t = UTCTime(val.UTC())
		return nil
	case []byte:
		return t.parse(string(val))
	case string:
		return t.parse(val)
	default:
		return fmt.Errorf("UTCTime scan source was not string, []byte or time.Time: %T", v)
	}
}

func (t *UTCTime) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*t = UTCTime(time.Time{})
		return nil
	}
	layouts := []string{
		utcLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*t = UTCTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("UTCTime: cannot parse %q", s)
}

func (t UTCTime) MarshalJSON() ([]byte, error) {
	if time.Time(t).IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + time.Time(t).UTC().Format(time.RFC3339) + `"`), nil
}

func (t *UTCTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = UTCTime(time.Time{})
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = UTCTime(parsed.UTC())
	return nil
}
