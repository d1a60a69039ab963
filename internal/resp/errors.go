package resp

import (
	"errors"
	"fmt"
)

// ErrIncomplete is returned by Decode when the buffer does not yet hold a
// complete value. It is not a failure: append more input and call again
var ErrIncomplete = errors.New("resp: incomplete frame")

var (
	ErrInvalidPrefix  = errors.New("invalid prefix byte")
	ErrInvalidInteger = errors.New("invalid integer")
	ErrInvalidLength  = errors.New("invalid length")
	ErrInvalidEnding  = errors.New("invalid line ending")
	ErrTooLong        = errors.New("value exceeds length limit")
	ErrInvalidUTF8    = errors.New("invalid UTF-8 text")

	ErrInvalidSimpleString = errors.New("resp: simple string contains CR, LF or invalid UTF-8")
	ErrUnknownType         = errors.New("resp: unknown value type")
)

// FormatError reports input that is not valid RESP. The stream has no
// resynchronization point, so the connection that produced it is unusable
type FormatError struct {
	Err    error
	Prefix byte   // type byte of the value being parsed, 0 if none
	Detail string // offending input, if any
}

func (e *FormatError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInvalidPrefix):
		return fmt.Sprintf("resp: invalid prefix byte: 0x%02x", e.Prefix)
	case e.Detail != "":
		return fmt.Sprintf("resp: %v in %q value: %q", e.Err, e.Prefix, e.Detail)
	default:
		return fmt.Sprintf("resp: %v in %q value", e.Err, e.Prefix)
	}
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
