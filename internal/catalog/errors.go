package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies a failed catalog operation
type Kind int

const (
	// KindConfiguration is a malformed base URL; not retryable
	KindConfiguration Kind = iota + 1
	// KindTransport is a network failure or a non-OK HTTP status
	KindTransport
	// KindRemote is an application error returned inside an OK response
	KindRemote
	// KindDecode is a body that does not match the response envelope
	KindDecode
	// KindNotFound is an exact-name query with no results
	KindNotFound
)

// Sentinels for errors.Is matching on the kind of an *Error
var (
	ErrConfiguration = errors.New("configuration error")
	ErrTransport     = errors.New("transport error")
	ErrRemote        = errors.New("remote error")
	ErrDecode        = errors.New("decode error")
	ErrNotFound      = errors.New("not found")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindTransport:
		return ErrTransport
	case KindRemote:
		return ErrRemote
	case KindDecode:
		return ErrDecode
	case KindNotFound:
		return ErrNotFound
	}
	return nil
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single terminal failure of a catalog operation
type Error struct {
	Kind Kind

	// StatusCode is set for transport errors caused by a non-OK status
	StatusCode int

	// Code and Message are set for remote errors
	Code    string
	Message string

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRemote:
		return fmt.Sprintf("error status from server: %s (code %s)", e.Message, e.Code)
	case KindTransport:
		if e.StatusCode != 0 {
			if e.Err != nil {
				return fmt.Sprintf("bad response code %d: %v", e.StatusCode, e.Err)
			}
			return fmt.Sprintf("bad response code %d", e.StatusCode)
		}
	case KindNotFound:
		if e.Message != "" {
			return e.Message
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the kind of a catalog error, or 0 if err is not one
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return 0
}

func transportError(err error) error {
	return &Error{Kind: KindTransport, Err: err}
}

func statusError(code int, body string) error {
	e := &Error{Kind: KindTransport, StatusCode: code}
	if body != "" {
		e.Err = errors.New(body)
	}
	return e
}

func decodeError(err error) error {
	return &Error{Kind: KindDecode, Err: err}
}
