package errors

import (
	"errors"
	"fmt"
)

// Common error types for the services client
var (
	// Configuration errors
	ErrConfiguration = errors.New("configuration error")
	ErrMissingSecret = errors.New("shared secret is not set")
	ErrMissingDomain = errors.New("domain identifier is not set")

	// Remote errors, the server reported #error at either envelope level
	ErrRemote = errors.New("remote error")

	// Transport errors
	ErrTransport  = errors.New("transport error")
	ErrHTTPStatus = errors.New("unexpected http status")

	// Crypto errors
	ErrCrypto = errors.New("crypto error")

	// Serialization errors
	ErrSerialization  = errors.New("serialization error")
	ErrUnexpectedType = errors.New("unexpected payload type")

	// Session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionTampered  = errors.New("session snapshot failed verification")
	ErrNotAuthenticated = errors.New("not authenticated")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Classify marks err as belonging to the kind sentinel while keeping the original
// chain reachable through errors.Is/As.
func Classify(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
