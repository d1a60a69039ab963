package resp

import (
	"bytes"
	"strconv"
	"unicode/utf8"
)

// DefaultMaxLength bounds a single line or bulk string. A peer that never
// sends a terminator fails here instead of growing the buffer forever
const DefaultMaxLength = 512_000_000

var crlf = []byte("\r\n")

// arrayContext is an array whose elements are still being decoded
type arrayContext struct {
	remaining int64
	items     []Value
}

// Decoder is a resumable RESP parser. Feeding the same bytes in one call or
// split across many produces the same values.
//
// Between calls the Decoder remembers how far into the caller's buffer it
// has parsed, so the buffer must only be appended to until Decode returns a
// value. A Decoder belongs to a single stream
type Decoder struct {
	maxLength int

	off     int   // bytes of the current top-level value already parsed
	cursor  int   // CRLF scan position relative to off
	pending byte  // type byte of the value in progress, 0 if none
	bulkLen int64 // declared bulk length, valid when hasLen
	hasLen  bool
	stack   []arrayContext
	err     error
}

// NewDecoder returns a Decoder with DefaultMaxLength
func NewDecoder() *Decoder {
	return NewDecoderLimit(DefaultMaxLength)
}

// NewDecoderLimit returns a Decoder that rejects lines and bulk strings longer than limit
func NewDecoderLimit(limit int) *Decoder {
	if limit <= 0 {
		limit = DefaultMaxLength
	}
	return &Decoder{maxLength: limit}
}

// Decode parses the next value from buf.
//
// On success the bytes of the value are removed from buf. ErrIncomplete
// leaves buf untouched; append more input and call again. Any other error
// is a *FormatError and is returned again by every later call until Reset
func (d *Decoder) Decode(buf *bytes.Buffer) (Value, error) {
	if d.err != nil {
		return Value{}, d.err
	}

	b := buf.Bytes()

next:
	for {
		if d.pending == 0 {
			if d.off >= len(b) {
				return Value{}, ErrIncomplete
			}

			switch prefix := b[d.off]; prefix {
			case TypeSimpleString, TypeError, TypeInteger, TypeBulkString, TypeArray:
				d.pending = prefix
				d.off++
			default:
				return Value{}, d.fail(&FormatError{Err: ErrInvalidPrefix, Prefix: prefix})
			}
		}

		var (
			val Value
			err error
		)

		switch d.pending {
		case TypeSimpleString, TypeError:
			val, err = d.readSimpleString(b)
		case TypeInteger:
			var n int64
			if n, err = d.readInteger(b); err == nil {
				val = MakeInteger(n)
			}
		case TypeBulkString:
			val, err = d.readBulkString(b)
		case TypeArray:
			var n int64
			if n, err = d.readInteger(b); err != nil {
				break
			}

			switch {
			case n == -1:
				val = MakeNilArray()
			case n == 0:
				val = MakeArray([]Value{})
			case n < -1:
				err = d.fail(&FormatError{Err: ErrInvalidLength, Prefix: TypeArray, Detail: strconv.FormatInt(n, 10)})
			default:
				d.stack = append(d.stack, arrayContext{
					remaining: n,
					items:     make([]Value, 0, min(n, 1024)),
				})
				d.pending = 0
				continue next
			}
		}

		if err != nil {
			return Value{}, err
		}

		d.pending = 0

		// fold the finished value into its enclosing arrays
		for len(d.stack) > 0 {
			top := &d.stack[len(d.stack)-1]
			top.items = append(top.items, val)
			top.remaining--

			if top.remaining > 0 {
				continue next
			}

			val = MakeArray(top.items)
			d.stack = d.stack[:len(d.stack)-1]
		}

		buf.Next(d.off)
		d.reset()

		return val, nil
	}
}

// Reset discards all state, including a sticky format error
func (d *Decoder) Reset() {
	d.reset()
	d.err = nil
}

func (d *Decoder) reset() {
	d.off = 0
	d.cursor = 0
	d.pending = 0
	d.bulkLen = 0
	d.hasLen = false
	d.stack = nil
}

func (d *Decoder) fail(err error) error {
	d.err = err
	return err
}

// readLine returns the bytes up to the next CRLF and moves past it.
// The scan resumes where the previous call stopped
func (d *Decoder) readLine(b []byte) ([]byte, error) {
	start := d.off
	from := start + d.cursor

	idx := bytes.Index(b[from:], crlf)
	if idx < 0 {
		// keep the last byte in case it is the CR of a split CRLF
		if seen := len(b) - start - 1; seen > d.cursor {
			d.cursor = seen
		}
		if d.cursor > d.maxLength {
			return nil, d.fail(&FormatError{Err: ErrTooLong, Prefix: d.pending})
		}
		return nil, ErrIncomplete
	}

	end := from + idx
	if end-start > d.maxLength {
		return nil, d.fail(&FormatError{Err: ErrTooLong, Prefix: d.pending})
	}

	d.off = end + len(crlf)
	d.cursor = 0

	return b[start:end], nil
}

func (d *Decoder) readSimpleString(b []byte) (Value, error) {
	line, err := d.readLine(b)
	if err != nil {
		return Value{}, err
	}
	if !utf8.Valid(line) {
		return Value{}, d.fail(&FormatError{Err: ErrInvalidUTF8, Prefix: d.pending})
	}

	return Value{
		Type:   d.pending,
		String: append([]byte{}, line...),
	}, nil
}

func (d *Decoder) readInteger(b []byte) (int64, error) {
	line, err := d.readLine(b)
	if err != nil {
		return 0, err
	}

	num, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, d.fail(&FormatError{Err: ErrInvalidInteger, Prefix: d.pending, Detail: string(line)})
	}

	return num, nil
}

// readBulkString parses the declared length once, then waits for the payload
func (d *Decoder) readBulkString(b []byte) (Value, error) {
	if !d.hasLen {
		n, err := d.readInteger(b)
		if err != nil {
			return Value{}, err
		}

		switch {
		case n == -1:
			return MakeNilBulkString(), nil
		case n < -1:
			return Value{}, d.fail(&FormatError{Err: ErrInvalidLength, Prefix: TypeBulkString, Detail: strconv.FormatInt(n, 10)})
		case n > int64(d.maxLength):
			return Value{}, d.fail(&FormatError{Err: ErrTooLong, Prefix: TypeBulkString, Detail: strconv.FormatInt(n, 10)})
		}

		d.bulkLen = n
		d.hasLen = true
	}

	end := d.off + int(d.bulkLen)
	if len(b) < end+len(crlf) {
		return Value{}, ErrIncomplete
	}

	if !bytes.Equal(b[end:end+len(crlf)], crlf) {
		return Value{}, d.fail(&FormatError{Err: ErrInvalidEnding, Prefix: TypeBulkString})
	}

	payload := append([]byte{}, b[d.off:end]...)

	d.off = end + len(crlf)
	d.bulkLen = 0
	d.hasLen = false

	return MakeBulkBytes(payload), nil
}
