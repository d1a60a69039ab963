package pubsub

import (
	"context"
	"net"
	"sync"

	"github.com/eternalApril/moonsub/internal/resp"
)

// Sender is the publishing connection. It is safe for concurrent use;
// publishes are serialized since each one is a single request/reply round trip
type Sender struct {
	*conn
	mu sync.Mutex
}

// DialSender connects a Sender to addr
func DialSender(ctx context.Context, addr string, opt *Options) (*Sender, error) {
	o := newOptions(opt)

	nc, err := dial(ctx, addr, o)
	if err != nil {
		return nil, err
	}
	return newSender(nc, o), nil
}

// NewSender wraps an established connection
func NewSender(nc net.Conn, opt *Options) *Sender {
	return newSender(nc, newOptions(opt))
}

func newSender(nc net.Conn, opt Options) *Sender {
	return &Sender{conn: newConn(nc, opt, "sender")}
}

// Publish posts payload to channel and returns the number of subscribers
// that received it.
//
// An error reply is returned as *ServerError and the Sender stays usable.
// Any other failure, ctx ending mid round trip included, is terminal
func (s *Sender) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(); err != nil {
		return 0, err
	}

	cmd := resp.MakeCommand("PUBLISH", resp.MakeBulkString(channel), resp.MakeBulkBytes(payload))
	if err := s.send(ctx, cmd); err != nil {
		return 0, err
	}

	reply, err := s.read(ctx, ctxDeadline(ctx))
	if err != nil {
		// the reply is still owed, a later read would pair it with the wrong command
		return 0, s.fail(s.wrap(ctx, "read", err))
	}

	switch reply.Type {
	case resp.TypeInteger:
		return reply.Integer, nil
	case resp.TypeError:
		return 0, &ServerError{Msg: string(reply.String)}
	}

	return 0, s.fail(mismatch(reply))
}
