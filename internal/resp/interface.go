package resp

import "io"

// Reader yields decoded values from a stream
type Reader interface {
	Read() (Value, error)
}

// Writer sends one value per call
type Writer interface {
	Write(v Value) error
}

// Stream is a bidirectional RESP connection
type Stream interface {
	Reader
	Writer
	io.Closer
}

var _ Stream = (*Codec)(nil)
