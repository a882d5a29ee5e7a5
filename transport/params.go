package transport

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
)

// EncodeParams renders a call's parameters as a form body. Strings and numbers are
// written as-is, booleans as 1/0 and anything else as JSON.
func EncodeParams(operation string, params map[string]any) (url.Values, error) {
	form := url.Values{}
	form.Set(ParamMethod, operation)
	for k, v := range params {
		s, err := formValue(v)
		if err != nil {
			return nil, svcerrors.Classify(svcerrors.ErrSerialization, fmt.Errorf("param %s: %w", k, err))
		}
		form.Set(k, s)
	}
	return form, nil
}

func formValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		if val {
			return "1", nil
		}
		return "0", nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
