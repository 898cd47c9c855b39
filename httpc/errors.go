package httpc

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUsage ErrorKind = iota + 1
	KindTransport
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindUsage:
		return "usage error"
	case KindTransport:
		return "transport error"
	case KindProtocol:
		return "protocol violation"
	default:
		return fmt.Sprintf("unknown error kind: %d", int(k))
	}
}

// ProtocolCode narrows a protocol violation.
type ProtocolCode int

const (
	InvalidStatusLine ProtocolCode = iota + 1
	InvalidContentLength
	InvalidChunkLength
	LineTooLong
	PrematureClose
)

func (c ProtocolCode) String() string {
	switch c {
	case InvalidStatusLine:
		return "invalid status line"
	case InvalidContentLength:
		return "invalid content length"
	case InvalidChunkLength:
		return "invalid chunk length"
	case LineTooLong:
		return "line too long"
	case PrematureClose:
		return "premature close"
	default:
		return fmt.Sprintf("unknown protocol code: %d", int(c))
	}
}

// ErrConnClosed is what unfinished responses get when their connection goes
// away before they saw any byte, or when the connection is closed locally.
var ErrConnClosed = errors.New("httpc: connection closed")

// Error wraps every failure the client reports.
type Error struct {
	Kind    ErrorKind
	Code    ProtocolCode // only for KindProtocol
	Op      string
	Addr    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Kind == KindProtocol && e.Code != 0 {
		msg += " (" + e.Code.String() + ")"
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Addr != "" {
		msg += " [" + e.Addr + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func usageError(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUsage, Op: op, Message: fmt.Sprintf(format, args...)}
}

func transportError(op, addr string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Addr: addr, Err: err}
}

func protocolError(code ProtocolCode, format string, args ...interface{}) *Error {
	return &Error{Kind: KindProtocol, Code: code, Op: "parse", Message: fmt.Sprintf(format, args...)}
}

func IsUsage(err error) bool {
	return isKind(err, KindUsage)
}

func IsTransport(err error) bool {
	return isKind(err, KindTransport)
}

func IsProtocol(err error) bool {
	return isKind(err, KindProtocol)
}

// ProtocolCodeOf returns 0 when err is not a protocol violation.
func ProtocolCodeOf(err error) ProtocolCode {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindProtocol {
		return e.Code
	}
	return 0
}

func isKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// NewUsageError is for callers outside the package that validate their own input.
func NewUsageError(op, format string, args ...interface{}) error {
	return usageError(op, format, args...)
}
