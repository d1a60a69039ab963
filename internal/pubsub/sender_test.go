package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eternalApril/moonsub/internal/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T, fs *fakeServer) *Sender {
	t.Helper()
	s := NewSender(fs.dial(t), nil)
	t.Cleanup(func() {
		s.Close() //nolint:errcheck
	})
	return s
}

func TestSender_Publish(t *testing.T) {
	got := make(chan resp.Value, 1)
	fs := newFakeServer(t, func(p *peer) {
		v, err := p.Read()
		if err != nil {
			return
		}
		got <- v
		p.WriteString(":3\r\n") //nolint:errcheck
		p.ReadCommand()
	})
	s := newTestSender(t, fs)

	n, err := s.Publish(testContext(t), "news", []byte("hello\r\nworld"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	want := resp.MakeCommand("PUBLISH", resp.MakeBulkString("news"), resp.MakeBulkString("hello\r\nworld"))
	v := <-got
	assert.Truef(t, want.Equal(v), "want %+v, got %+v", want, v)
}

func TestSender_ServerErrorIsNotTerminal(t *testing.T) {
	fs := newFakeServer(t, func(p *peer) {
		p.ReadCommand()
		p.WriteString("-ERR wrong number of arguments for 'publish' command\r\n") //nolint:errcheck
		p.ReadCommand()
		p.WriteString(":0\r\n") //nolint:errcheck
		p.ReadCommand()
	})
	s := newTestSender(t, fs)
	ctx := testContext(t)

	_, err := s.Publish(ctx, "ch", nil)
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "wrong number of arguments")

	n, err := s.Publish(ctx, "ch", []byte("again"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSender_ProtocolMismatch(t *testing.T) {
	fs := newFakeServer(t, func(p *peer) {
		p.ReadCommand()
		p.WriteString("+OK\r\n") //nolint:errcheck
		p.ReadCommand()
	})
	s := newTestSender(t, fs)
	ctx := testContext(t)

	_, err := s.Publish(ctx, "ch", []byte("x"))
	require.ErrorIs(t, err, ErrProtocolMismatch)

	_, again := s.Publish(ctx, "ch", []byte("x"))
	assert.Equal(t, err, again)
}

func TestSender_ConnectionClosed(t *testing.T) {
	fs := newFakeServer(t, func(p *peer) {
		p.ReadCommand()
	})
	s := newTestSender(t, fs)

	_, err := s.Publish(testContext(t), "ch", []byte("x"))

	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "read", ce.Op)
}

func TestSender_ContextEndsRoundTrip(t *testing.T) {
	fs := newFakeServer(t, func(p *peer) {
		p.ReadCommand()
		p.ReadCommand() // never reply
	})
	s := newTestSender(t, fs)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Publish(ctx, "ch", []byte("x"))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)

	_, err = s.Publish(testContext(t), "ch", []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded, "the reply stream is out of step, the sender stays failed")
}

func TestSender_ConcurrentPublish(t *testing.T) {
	const publishers = 8

	fs := newFakeServer(t, func(p *peer) {
		for i := int64(1); p.ReadCommand() == "PUBLISH"; i++ {
			p.Write(resp.MakeInteger(i)) //nolint:errcheck
		}
	})
	s := newTestSender(t, fs)
	ctx := testContext(t)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.Publish(ctx, "ch", []byte("x"))
			assert.NoError(t, err)

			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, publishers, "every publish must get its own reply")
}
