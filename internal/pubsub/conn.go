package pubsub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/eternalApril/moonsub/internal/resp"
	"go.uber.org/zap"
)

// aLongTimeAgo is a deadline in the past, used to interrupt blocked I/O
var aLongTimeAgo = time.Unix(1, 0)

// conn is one RESP connection plus the terminal-error bookkeeping shared by
// Sender and Receiver. The first fatal error closes the connection and is
// returned from every later call
type conn struct {
	codec *resp.Codec
	log   *zap.Logger

	wmu sync.Mutex // one command on the wire at a time, deadline included

	mu  sync.Mutex
	err error
}

func newConn(nc net.Conn, opt Options, name string) *conn {
	return &conn{
		codec: resp.NewCodec(nc, opt.MaxLength),
		log:   opt.Logger.Named(name).With(zap.String("addr", nc.RemoteAddr().String())),
	}
}

func dial(ctx context.Context, addr string, opt Options) (net.Conn, error) {
	d := net.Dialer{Timeout: opt.DialTimeout}

	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	return nc, nil
}

// failure returns the terminal error, if any
func (c *conn) failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// fail records err as terminal and closes the connection. The first error wins
func (c *conn) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	c.err = err

	if !errors.Is(err, ErrClosed) {
		c.log.Warn("connection failed", zap.Error(err))
	}
	c.codec.Close() //nolint:errcheck

	return err
}

// Close closes the connection. Calls after a failure or a previous Close are no-ops
func (c *conn) Close() error {
	c.fail(ErrClosed) //nolint:errcheck
	return nil
}

// send writes one command. Any write failure is terminal since part of the
// command may already be on the wire
func (c *conn) send(ctx context.Context, v resp.Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	err := withDeadline(ctx, ctxDeadline(ctx), c.codec.SetWriteDeadline, func() error {
		return c.codec.Write(v)
	})
	if err != nil {
		return c.fail(c.wrap(ctx, "write", err))
	}
	return nil
}

// read returns the next frame, giving up at deadline or when ctx is done
func (c *conn) read(ctx context.Context, deadline time.Time) (resp.Value, error) {
	var v resp.Value
	err := withDeadline(ctx, deadline, c.codec.SetReadDeadline, func() (err error) {
		v, err = c.codec.Read()
		return err
	})
	return v, err
}

// wrap classifies an I/O error. Format errors stay as they are
func (c *conn) wrap(ctx context.Context, op string, err error) error {
	var fe *resp.FormatError
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		if ctxErr := ctxDone(ctx); ctxErr != nil {
			err = ctxErr
		}
	}
	return &ConnectionError{Op: op, Err: err}
}

// ctxDone is ctx.Err(), also reporting a deadline that passed before ctx noticed it
func ctxDone(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return context.DeadlineExceeded
	}
	return nil
}

// withDeadline runs op under deadline and interrupts it early when ctx is done
func withDeadline(ctx context.Context, deadline time.Time, set func(time.Time) error, op func() error) error {
	if err := set(deadline); err != nil {
		return err
	}

	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(done)
		set(aLongTimeAgo) //nolint:errcheck
	})
	defer func() {
		if !stop() {
			<-done
		}
	}()

	return op()
}

func ctxDeadline(ctx context.Context) time.Time {
	d, _ := ctx.Deadline()
	return d
}

func mismatch(v resp.Value) error {
	if kind, ok := replyKind(v); ok {
		return fmt.Errorf("%w: %q reply %q", ErrProtocolMismatch, v.Type, kind)
	}
	return fmt.Errorf("%w: %q reply", ErrProtocolMismatch, v.Type)
}

// replyKind returns the text of v, or of its first element for arrays
func replyKind(v resp.Value) (string, bool) {
	if v.Type == resp.TypeArray && len(v.Array) > 0 {
		return v.Array[0].Text()
	}
	return v.Text()
}
