package util

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimeAsTimestamp is stored as an UNIX timestamp but used as a time.Time
type TimeAsTimestamp time.Time

// NewTimeAsTimestamp truncates t to the second, the stored precision.
func NewTimeAsTimestamp(t time.Time) TimeAsTimestamp {
	return TimeAsTimestamp(time.Unix(t.Unix(), 0).UTC())
}

func (t TimeAsTimestamp) Value() (driver.Value, error) {
	return driver.Value(time.Time(t).Unix()), nil
}

func (t TimeAsTimestamp) Time() time.Time {
	return time.Time(t)
}

func (t TimeAsTimestamp) Unix() int64 {
	return time.Time(t).Unix()
}

func (t TimeAsTimestamp) Equal(v TimeAsTimestamp) bool {
	return t.Unix() == v.Unix()
}

func (t TimeAsTimestamp) Before(v TimeAsTimestamp) bool {
	return t.Unix() < v.Unix()
}

func (t *TimeAsTimestamp) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		tmp, err := strconv.ParseInt(string(src), 10, 64)
		if err != nil {
			return err
		}

		*t = TimeAsTimestamp(time.Unix(tmp, 0).UTC())
	case int64:
		*t = TimeAsTimestamp(time.Unix(src, 0).UTC())
	default:
		return fmt.Errorf("expected []byte or int64, got %T", src)
	}

	return nil
}

// MarshalJSON outputs RFC3339, the format accepted in match corrections.
func (t TimeAsTimestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time().UTC().Format(time.RFC3339))
}

func (t *TimeAsTimestamp) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}

	v, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}

	*t = NewTimeAsTimestamp(v)

	return nil
}
