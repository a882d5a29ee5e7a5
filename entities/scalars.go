package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Int is an integer the remote site may send as a number or a numeric string.
type Int int

func (i *Int) UnmarshalJSON(b []byte) error {
	s, err := scalarText(b)
	if err != nil {
		return err
	}
	if s == "" {
		*i = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("entities: %q is not an integer", s)
	}
	*i = Int(n)
	return nil
}

// Bool is a flag sent as true/false, 1/0 or their string forms. It is written as 1/0.
type Bool bool

func (v *Bool) UnmarshalJSON(b []byte) error {
	s, err := scalarText(b)
	if err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "", "0", "false":
		*v = false
	case "1", "true":
		*v = true
	default:
		return fmt.Errorf("entities: %q is not a boolean", s)
	}
	return nil
}

func (v Bool) MarshalJSON() ([]byte, error) {
	if v {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnixTime is a timestamp in seconds since the epoch.
type UnixTime int64

func (t *UnixTime) UnmarshalJSON(b []byte) error {
	var i Int
	if err := i.UnmarshalJSON(b); err != nil {
		return err
	}
	*t = UnixTime(i)
	return nil
}

func (t UnixTime) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

func NewUnixTime(t time.Time) UnixTime {
	return UnixTime(t.Unix())
}

// scalarText returns the text of a JSON number, string, bool or null.
func scalarText(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	if b[0] == '{' || b[0] == '[' {
		return "", fmt.Errorf("entities: expected scalar, got %s", string(b))
	}
	return string(b), nil
}

// PHPMap is an object keyed by id. The remote site encodes an empty one as [] and
// sometimes sends a list instead of an object; list items are keyed by position.
type PHPMap[V any] map[string]V

func (m *PHPMap[V]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = nil
		return nil
	}
	if b[0] == '[' {
		var list []V
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		if len(list) == 0 {
			*m = nil
			return nil
		}
		out := make(PHPMap[V], len(list))
		for i, v := range list {
			out[strconv.Itoa(i)] = v
		}
		*m = out
		return nil
	}
	var out map[string]V
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
