// Package entities holds the remote site's content types and their JSON mapping.
package entities

import (
	"bytes"
	"encoding/json"
	"fmt"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
)

// Unserialize decodes an unwrapped #data payload into a T.
func Unserialize[T any](data json.RawMessage) (*T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, svcerrors.Classify(svcerrors.ErrSerialization, svcerrors.ErrNotFound)
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, svcerrors.Classify(svcerrors.ErrSerialization, fmt.Errorf("decode %T: %w", v, err))
	}
	return v, nil
}

// UnserializeList decodes a #data payload that is either a JSON array or an object
// keyed by row index. An empty payload yields an empty list.
func UnserializeList[T any](data json.RawMessage) ([]*T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []*T{}, nil
	}

	switch trimmed[0] {
	case '[':
		var list []*T
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, svcerrors.Classify(svcerrors.ErrSerialization, fmt.Errorf("decode list of %T: %w", new(T), err))
		}
		return list, nil
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil, svcerrors.Classify(svcerrors.ErrSerialization, err)
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sortNumeric(keys)
		list := make([]*T, 0, len(keys))
		for _, k := range keys {
			v, err := Unserialize[T](keyed[k])
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case 'f':
		// views answer false for an empty result
		if bytes.Equal(trimmed, []byte("false")) {
			return []*T{}, nil
		}
	}
	return nil, svcerrors.Classify(svcerrors.ErrSerialization, fmt.Errorf("%w: %s", svcerrors.ErrUnexpectedType, string(trimmed)))
}

// Serialize encodes an entity in the shape the remote save operations expect.
func Serialize(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", svcerrors.Classify(svcerrors.ErrSerialization, err)
	}
	return string(b), nil
}
