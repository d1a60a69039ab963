package resp

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"unicode/utf8"
)

// AppendValue appends the RESP encoding of v to dst and returns the extended slice.
// Simple strings and errors must be UTF-8 text without CR or LF
func AppendValue(dst []byte, v Value) ([]byte, error) {
	switch v.Type {
	case TypeInteger:
		return appendHeader(dst, TypeInteger, v.Integer), nil

	case TypeSimpleString, TypeError:
		if bytes.ContainsAny(v.String, "\r\n") || !utf8.Valid(v.String) {
			return dst, ErrInvalidSimpleString
		}
		return appendRaw(dst, v.Type, v.String), nil

	case TypeBulkString:
		if v.IsNull {
			return append(dst, "$-1\r\n"...), nil
		}
		dst = appendHeader(dst, TypeBulkString, int64(len(v.String)))
		dst = append(dst, v.String...)
		return append(dst, crlf...), nil

	case TypeArray:
		if v.IsNull {
			return append(dst, "*-1\r\n"...), nil
		}
		dst = appendHeader(dst, TypeArray, int64(len(v.Array)))
		var err error
		for _, el := range v.Array {
			if dst, err = AppendValue(dst, el); err != nil {
				return dst, err
			}
		}
		return dst, nil
	}

	return dst, ErrUnknownType
}

// appendHeader writes the type prefix, numeric value, and CRLF
func appendHeader(dst []byte, prefix byte, n int64) []byte {
	dst = append(dst, prefix)
	dst = strconv.AppendInt(dst, n, 10)
	return append(dst, crlf...)
}

// appendRaw writes the type prefix, raw bytes, and CRLF (for SimpleString and Error)
func appendRaw(dst []byte, prefix byte, b []byte) []byte {
	dst = append(dst, prefix)
	dst = append(dst, b...)
	return append(dst, crlf...)
}

// Encoder handles the serialization of RESP Value objects into an output stream
type Encoder struct {
	writer  *bufio.Writer
	scratch []byte
}

// NewEncoder initializes an Encoder with a buffered writer
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		writer: bufio.NewWriter(w),
	}
}

// Write serializes a RESP Value into the buffer. Nothing reaches the
// underlying stream until Flush. An unencodable value writes nothing
func (e *Encoder) Write(v Value) error {
	b, err := AppendValue(e.scratch[:0], v)
	if err != nil {
		return err
	}
	e.scratch = b

	_, err = e.writer.Write(b)
	return err
}

// Flush sends all buffered data to the underlying stream
func (e *Encoder) Flush() error {
	return e.writer.Flush()
}

// Buffered returns the number of bytes waiting for Flush
func (e *Encoder) Buffered() int {
	return e.writer.Buffered()
}
