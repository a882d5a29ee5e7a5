// Package envelope decodes the {"#error", "#data"} wrapper every services response uses.
//
// Failure is reported at two levels: a truthy top-level "#error", or a falsy one whose
// "#data" object carries its own truthy "#error" and a "#message" (the remote site does
// this for access checks, e.g. "Access denied"). Both are surfaced as *RemoteError.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
)

const (
	FieldError   = "#error"
	FieldData    = "#data"
	FieldMessage = "#message"
)

// RemoteError is returned when the server reported an error at either envelope level.
type RemoteError struct {
	Message string
	Nested  bool // reported inside #data rather than at the top level
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error: %s", e.Message)
}

func (e *RemoteError) Unwrap() error {
	return svcerrors.ErrRemote
}

// Response is the decoded wrapper. Error is normalised to a single boolean.
type Response struct {
	Error   bool
	Data    json.RawMessage // nil when #data is absent
	Message string
}

type rawResponse struct {
	Error   flag            `json:"#error"`
	Data    json.RawMessage `json:"#data"`
	Message string          `json:"#message"`
}

// Parse reads the wrapper without applying the error checks.
func Parse(raw []byte) (*Response, error) {
	var r rawResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, svcerrors.Classify(svcerrors.ErrSerialization, fmt.Errorf("decode envelope: %w", err))
	}
	data := r.Data
	if isNull(data) {
		data = nil
	}
	return &Response{Error: bool(r.Error), Data: data, Message: r.Message}, nil
}

// Decode applies the top-level and nested error checks, in that order, and returns
// the #data payload. A missing #data is a successful call with no payload.
func Decode(raw []byte) (json.RawMessage, error) {
	resp, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	if resp.Error {
		return nil, &RemoteError{Message: topLevelMessage(resp, raw)}
	}

	if nested := nestedError(resp.Data); nested != nil {
		return nil, nested
	}

	return resp.Data, nil
}

// DecodeInto decodes the envelope and unmarshals #data into v.
func DecodeInto(raw []byte, v any) error {
	data, err := Decode(raw)
	if err != nil {
		return err
	}
	if data == nil {
		return svcerrors.Classify(svcerrors.ErrSerialization, fmt.Errorf("decode envelope: %w", svcerrors.ErrNotFound))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return svcerrors.Classify(svcerrors.ErrSerialization, fmt.Errorf("decode #data: %w", err))
	}
	return nil
}

func topLevelMessage(resp *Response, raw []byte) string {
	if resp.Message != "" {
		return resp.Message
	}
	var s string
	if resp.Data != nil && json.Unmarshal(resp.Data, &s) == nil && s != "" {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func nestedError(data json.RawMessage) *RemoteError {
	if !isObject(data) {
		return nil
	}
	var inner struct {
		Error   flag    `json:"#error"`
		Message *string `json:"#message"`
	}
	if err := json.Unmarshal(data, &inner); err != nil {
		return nil
	}
	if !inner.Error || inner.Message == nil {
		return nil
	}
	return &RemoteError{Message: *inner.Message, Nested: true}
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// flag normalises the service's "#error" values: true/false, "true"/"false", 1/0, "1"/"0".
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0":
		*f = false
	case "true", "1":
		*f = true
	default:
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			*f = n != 0
			return nil
		}
		return fmt.Errorf("unrecognised %s value %s", FieldError, string(b))
	}
	return nil
}
