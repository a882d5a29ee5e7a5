package envelope

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
)

// Int reads an integer #data payload. Booleans map to 1/0 and numeric strings are
// accepted, since save operations answer with any of the three.
func Int(data json.RawMessage) (int, error) {
	if data == nil {
		return 0, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, svcerrors.Classify(svcerrors.ErrSerialization, err)
	}
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, svcerrors.Classify(svcerrors.ErrSerialization, fmt.Errorf("%w: %q is not an integer", svcerrors.ErrUnexpectedType, t))
		}
		return n, nil
	case nil:
		return 0, nil
	}
	return 0, svcerrors.Classify(svcerrors.ErrSerialization, fmt.Errorf("%w: %s", svcerrors.ErrUnexpectedType, string(data)))
}

// String reads a string #data payload.
func String(data json.RawMessage) (string, error) {
	if data == nil {
		return "", svcerrors.Classify(svcerrors.ErrSerialization, svcerrors.ErrNotFound)
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", svcerrors.Classify(svcerrors.ErrSerialization, fmt.Errorf("%w: %s", svcerrors.ErrUnexpectedType, string(data)))
	}
	return s, nil
}

// Encode builds a response body. Used by the services stub and tests.
func Encode(data any) ([]byte, error) {
	return json.Marshal(map[string]any{FieldError: false, FieldData: data})
}

// EncodeError builds an error response body with the message in both #data and #message.
func EncodeError(message string) ([]byte, error) {
	return json.Marshal(map[string]any{FieldError: true, FieldData: message, FieldMessage: message})
}

// EncodeNestedError builds the false-top-level, true-nested error shape.
func EncodeNestedError(message string) ([]byte, error) {
	return json.Marshal(map[string]any{
		FieldError: false,
		FieldData:  map[string]any{FieldError: true, FieldMessage: message},
	})
}
