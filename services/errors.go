package services

import "fmt"

// FetchError wraps any failure on a read operation.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SaveError wraps any failure on a write operation.
type SaveError struct {
	Op  string
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Op, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

type LoginError struct {
	User string
	Err  error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login %q: %v", e.User, e.Err)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

type LogoutError struct {
	Err error
}

func (e *LogoutError) Error() string {
	return fmt.Sprintf("logout: %v", e.Err)
}

func (e *LogoutError) Unwrap() error {
	return e.Err
}
