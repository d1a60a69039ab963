package pubsub

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"time"

	"github.com/eternalApril/moonsub/internal/resp"
	"go.uber.org/zap"
)

// Receiver is the subscribing connection.
//
// Next must be called from a single goroutine. The subscription methods may
// be called from other goroutines while Next is blocked; their
// acknowledgements arrive through Next, which consumes them
type Receiver struct {
	*conn
	interval time.Duration

	// pingAt is when the next keepalive fires. It only moves on an inbound
	// frame or a sent PING, so time between Next calls counts too
	pingAt time.Time

	// pongReceived is cleared when a PING is sent and set by its reply
	pongReceived bool
}

// keepaliveGrace is the shortest read wait, so a reply already on the socket
// is seen before a keepalive deadline that passed outside Next is acted on
const keepaliveGrace = time.Millisecond

// DialReceiver connects a Receiver to addr
func DialReceiver(ctx context.Context, addr string, opt *Options) (*Receiver, error) {
	o := newOptions(opt)

	nc, err := dial(ctx, addr, o)
	if err != nil {
		return nil, err
	}
	return newReceiver(nc, o), nil
}

// NewReceiver wraps an established connection
func NewReceiver(nc net.Conn, opt *Options) *Receiver {
	return newReceiver(nc, newOptions(opt))
}

func newReceiver(nc net.Conn, opt Options) *Receiver {
	return &Receiver{
		conn:         newConn(nc, opt, "receiver"),
		interval:     opt.KeepaliveInterval,
		pingAt:       time.Now().Add(opt.KeepaliveInterval),
		pongReceived: true,
	}
}

// Subscribe asks the server to deliver messages published to channels
func (r *Receiver) Subscribe(ctx context.Context, channels ...string) error {
	if len(channels) == 0 {
		return ErrNoChannels
	}
	return r.command(ctx, "SUBSCRIBE", channels)
}

// Unsubscribe stops delivery for channels, or for every channel when none are given
func (r *Receiver) Unsubscribe(ctx context.Context, channels ...string) error {
	return r.command(ctx, "UNSUBSCRIBE", channels)
}

// PSubscribe asks the server to deliver messages published to channels matching patterns
func (r *Receiver) PSubscribe(ctx context.Context, patterns ...string) error {
	if len(patterns) == 0 {
		return ErrNoChannels
	}
	return r.command(ctx, "PSUBSCRIBE", patterns)
}

// PUnsubscribe stops delivery for patterns, or for every pattern when none are given
func (r *Receiver) PUnsubscribe(ctx context.Context, patterns ...string) error {
	return r.command(ctx, "PUNSUBSCRIBE", patterns)
}

func (r *Receiver) command(ctx context.Context, name string, args []string) error {
	if err := r.failure(); err != nil {
		return err
	}

	vals := make([]resp.Value, len(args))
	for i, arg := range args {
		vals[i] = resp.MakeBulkString(arg)
	}

	return r.send(ctx, resp.MakeCommand(name, vals...))
}

// Next blocks until a message arrives.
//
// While waiting it keeps the connection alive: after KeepaliveInterval
// without any inbound frame it sends a PING, and if the previous PING was
// never answered it fails with ErrTimeout instead. The interval runs across
// calls, so polling with contexts shorter than it still sends PINGs. Replies
// to PING and subscription acknowledgements are consumed here and never
// returned.
//
// An error reply from the server is returned as *ServerError, unlike any
// other unexpected frame, which is ErrProtocolMismatch. ctx ending returns
// ctx.Err() and keeps a partially received frame buffered. The Receiver
// stays usable after both. Every other error is terminal
func (r *Receiver) Next(ctx context.Context) (Message, error) {
	if err := r.failure(); err != nil {
		return Message{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		deadline := r.pingAt
		if now := time.Now(); deadline.Before(now.Add(keepaliveGrace)) {
			deadline = now.Add(keepaliveGrace)
		}
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}

		v, err := r.read(ctx, deadline)
		if err == nil {
			r.pingAt = time.Now().Add(r.interval)

			msg, ok, err := r.dispatch(v)
			if err != nil || ok {
				return msg, err
			}
			continue
		}

		if !errors.Is(err, os.ErrDeadlineExceeded) {
			return Message{}, r.fail(r.wrap(ctx, "read", err))
		}

		// a partial frame stays buffered in the codec, nothing is lost here
		if err := ctxDone(ctx); err != nil {
			return Message{}, err
		}
		if time.Now().Before(r.pingAt) {
			continue
		}

		if err := r.keepalive(ctx); err != nil {
			return Message{}, err
		}
		r.pingAt = time.Now().Add(r.interval)
	}
}

func (r *Receiver) keepalive(ctx context.Context) error {
	if !r.pongReceived {
		return r.fail(ErrTimeout)
	}

	if r.log.Core().Enabled(zap.DebugLevel) {
		r.log.Debug("sending keepalive ping", zap.Duration("interval", r.interval))
	}

	if err := r.send(ctx, resp.MakeCommand("PING")); err != nil {
		return err
	}
	r.pongReceived = false

	return nil
}

// dispatch classifies one inbound frame. ok is true when msg should be returned to the caller
func (r *Receiver) dispatch(v resp.Value) (msg Message, ok bool, err error) {
	switch v.Type {
	case resp.TypeSimpleString:
		if s, _ := v.Text(); strings.EqualFold(s, "PONG") {
			r.pong()
			return Message{}, false, nil
		}

	case resp.TypeBulkString:
		// PING with an argument echoes it back
		if !v.IsNull {
			r.pong()
			return Message{}, false, nil
		}

	case resp.TypeError:
		return Message{}, false, &ServerError{Msg: string(v.String)}

	case resp.TypeArray:
		return r.dispatchArray(v)
	}

	return Message{}, false, r.fail(mismatch(v))
}

func (r *Receiver) dispatchArray(v resp.Value) (Message, bool, error) {
	kind, _ := replyKind(v)

	switch items := v.Array; kind {
	case "message":
		if len(items) == 3 {
			channel, okc := items[1].Text()
			payload, okp := bulk(items[2])
			if okc && okp {
				return Message{Channel: channel, Payload: payload}, true, nil
			}
		}

	case "pmessage":
		if len(items) == 4 {
			pattern, okt := items[1].Text()
			channel, okc := items[2].Text()
			payload, okp := bulk(items[3])
			if okt && okc && okp {
				return Message{Pattern: pattern, Channel: channel, Payload: payload}, true, nil
			}
		}

	case "subscribe", "unsubscribe", "psubscribe", "punsubscribe":
		if r.log.Core().Enabled(zap.DebugLevel) {
			fields := []zap.Field{zap.String("kind", kind)}
			if len(items) == 3 {
				name, _ := items[1].Text()
				fields = append(fields, zap.String("name", name), zap.Int64("active", items[2].Integer))
			}
			r.log.Debug("subscription acknowledged", fields...)
		}
		return Message{}, false, nil

	case "pong":
		// PING inside a subscribed session replies with ["pong", message]
		r.pong()
		return Message{}, false, nil
	}

	return Message{}, false, r.fail(mismatch(v))
}

func (r *Receiver) pong() {
	if r.log.Core().Enabled(zap.DebugLevel) && !r.pongReceived {
		r.log.Debug("keepalive pong received")
	}
	r.pongReceived = true
}

// bulk returns the payload of a non-null bulk string
func bulk(v resp.Value) ([]byte, bool) {
	if v.Type != resp.TypeBulkString || v.IsNull {
		return nil, false
	}
	return v.String, true
}
