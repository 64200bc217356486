package model

import (
	"fmt"
	"strings"
	"time"
)

// ISOTime is a custom time type to format time as ISO-8601 (RFC 3339).
type ISOTime time.Time

// MarshalJSON implements the json.Marshaler interface.
func (t ISOTime) MarshalJSON() ([]byte, error) {
	formatted := fmt.Sprintf("\"%s\"", time.Time(t).Format(time.RFC3339))
	return []byte(formatted), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *ISOTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), "\"")
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = ISOTime(parsed)
	return nil
}

// NewISOTime 将标准时间包装为 ISOTime 指针，便于可选字段使用。
func NewISOTime(t time.Time) *ISOTime {
	it := ISOTime(t)
	return &it
}
