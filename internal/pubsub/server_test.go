package pubsub

import (
	"net"
	"testing"

	"github.com/eternalApril/moonsub/internal/resp"
	"github.com/stretchr/testify/require"
)

// peer is the server side of a test connection
type peer struct {
	resp.Stream
	raw net.Conn
}

// WriteString sends bytes exactly as given
func (p *peer) WriteString(s string) error {
	_, err := p.raw.Write([]byte(s))
	return err
}

// ReadCommand returns the name of the next client command, "" on error
func (p *peer) ReadCommand() string {
	v, err := p.Read()
	if err != nil || v.Type != resp.TypeArray || len(v.Array) == 0 {
		return ""
	}
	name, _ := v.Array[0].Text()
	return name
}

// fakeServer accepts a single loopback connection and hands it to a scripted handler
type fakeServer struct {
	addr string
	done chan struct{}
}

func newFakeServer(t *testing.T, handler func(p *peer)) *fakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	fs := &fakeServer{addr: ln.Addr().String(), done: make(chan struct{})}

	go func() {
		defer close(fs.done)

		nc, err := ln.Accept()
		ln.Close() //nolint:errcheck
		if err != nil {
			return
		}
		defer nc.Close() //nolint:errcheck

		handler(&peer{Stream: resp.NewCodec(nc, 0), raw: nc})
	}()

	t.Cleanup(func() {
		ln.Close() //nolint:errcheck
	})

	return fs
}

// dial connects to the fake server
func (fs *fakeServer) dial(t *testing.T) net.Conn {
	t.Helper()

	nc, err := net.Dial("tcp", fs.addr)
	require.NoError(t, err)

	return nc
}

func messageFrame(channel, payload string) resp.Value {
	return resp.MakeArray([]resp.Value{
		resp.MakeBulkString("message"),
		resp.MakeBulkString(channel),
		resp.MakeBulkString(payload),
	})
}
