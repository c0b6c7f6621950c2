package insights

import (
	"errors"
	"fmt"
)

// ErrorKind separates network level failures from unusable replies.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindDecode    ErrorKind = "decode"
)

var (
	ErrTransport = errors.New("transport error")
	ErrDecode    = errors.New("decode error")
)

const maxDiagnosticBody = 200

// Error is returned by every Client operation.
type Error struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	// Body is a truncated copy of a non-2xx reply, for diagnostics only.
	Body string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Endpoint, e.Kind, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d", e.Endpoint, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Endpoint, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s", e.Endpoint, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

func transportError(endpoint string, err error) *Error {
	return &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
}

func statusError(endpoint string, status int, body []byte) *Error {
	return &Error{Kind: KindTransport, Endpoint: endpoint, StatusCode: status, Body: truncate(string(body), maxDiagnosticBody)}
}

func decodeError(endpoint string, err error) *Error {
	return &Error{Kind: KindDecode, Endpoint: endpoint, Err: err}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
