package resp

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

const readChunk = 4096

// Codec frames RESP values over a connection: one Decoder for the inbound
// direction and one Encoder for the outbound one.
//
// Read must be called from one goroutine at a time. Write is safe to call
// concurrently with Read and with other writers
type Codec struct {
	conn net.Conn

	dec   *Decoder
	in    bytes.Buffer
	chunk []byte

	mu  sync.Mutex
	enc *Encoder
}

// NewCodec wraps conn. limit bounds a single line or bulk string, 0 means DefaultMaxLength
func NewCodec(conn net.Conn, limit int) *Codec {
	return &Codec{
		conn:  conn,
		dec:   NewDecoderLimit(limit),
		chunk: make([]byte, readChunk),
		enc:   NewEncoder(conn),
	}
}

// Read returns the next value, reading from the connection only when the
// buffered input does not hold a complete one.
//
// A read error, a deadline included, keeps every byte received so far and
// the decoder's progress, so calling Read again continues the same frame.
// The connection closing mid-frame is io.ErrUnexpectedEOF
func (c *Codec) Read() (Value, error) {
	for {
		v, err := c.dec.Decode(&c.in)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrIncomplete) {
			return Value{}, err
		}

		n, err := c.conn.Read(c.chunk)
		c.in.Write(c.chunk[:n])

		if err != nil {
			if n > 0 {
				// decode what arrived with the error before reporting it
				if v, derr := c.dec.Decode(&c.in); derr == nil {
					return v, nil
				} else if !errors.Is(derr, ErrIncomplete) {
					return Value{}, derr
				}
			}
			if errors.Is(err, io.EOF) && c.in.Len() > 0 {
				return Value{}, io.ErrUnexpectedEOF
			}
			return Value{}, err
		}
	}
}

// Write encodes v and flushes it to the connection
func (c *Codec) Write(v Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enc.Write(v); err != nil {
		return err
	}
	return c.enc.Flush()
}

// Buffered returns the number of received bytes not yet returned as values
func (c *Codec) Buffered() int {
	return c.in.Len()
}

// SetReadDeadline sets the deadline for future Read calls
func (c *Codec) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the deadline for future Write calls
func (c *Codec) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// RemoteAddr returns the address of the peer
func (c *Codec) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close terminates the underlying network connection
func (c *Codec) Close() error {
	return c.conn.Close()
}
