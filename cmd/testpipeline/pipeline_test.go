package testpipeline

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/eternalApril/moonsub/internal/pubsub"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverAddr(t *testing.T) string {
	t.Helper()

	addr := os.Getenv("MOONSUB_TEST_ADDR")
	if addr == "" {
		t.Skip("MOONSUB_TEST_ADDR is not set")
	}
	return addr
}

// waitSubscribers blocks until channel has at least n subscribers on the server.
func waitSubscribers(t *testing.T, rdb *redis.Client, channel string, n int64) {
	t.Helper()

	assert.Eventually(t, func() bool {
		counts, err := rdb.PubSubNumSub(context.Background(), channel).Result()
		return err == nil && counts[channel] >= n
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRedisPublishToReceiver(t *testing.T) {
	addr := serverAddr(t)

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	receiver, err := pubsub.DialReceiver(ctx, addr, nil)
	require.NoError(t, err)
	defer receiver.Close()

	channel := fmt.Sprintf("moonsub_interop_%d", time.Now().UnixNano())
	require.NoError(t, receiver.Subscribe(ctx, channel))
	waitSubscribers(t, rdb, channel, 1)

	count := 1_000
	go func() {
		for i := 0; i < count; i++ {
			rdb.Publish(ctx, channel, fmt.Sprintf("msg_%d", i))
		}
	}()

	start := time.Now()
	for i := 0; i < count; i++ {
		msg, err := receiver.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, channel, msg.Channel)
		assert.Equal(t, fmt.Sprintf("msg_%d", i), string(msg.Payload), "Message %d mismatch", i)
	}
	fmt.Printf("Received %d messages in %v\n", count, time.Since(start))
}

func TestSenderPublishToRedis(t *testing.T) {
	addr := serverAddr(t)

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channel := fmt.Sprintf("moonsub_interop_%d", time.Now().UnixNano())
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	sender, err := pubsub.DialSender(ctx, addr, nil)
	require.NoError(t, err)
	defer sender.Close()

	n, err := sender.Publish(ctx, channel, []byte("hello\r\nworld"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, channel, msg.Channel)
	assert.Equal(t, "hello\r\nworld", msg.Payload)
}

func TestPatternRoundTrip(t *testing.T) {
	addr := serverAddr(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pubsub.Dial(ctx, addr, nil)
	require.NoError(t, err)
	defer client.Close()

	prefix := fmt.Sprintf("moonsub_interop_%d", time.Now().UnixNano())
	require.NoError(t, client.PSubscribe(ctx, prefix+".*"))

	channel := prefix + ".news"
	assert.Eventually(t, func() bool {
		n, err := client.Publish(ctx, channel, []byte("payload"))
		return err == nil && n == 1
	}, 5*time.Second, 20*time.Millisecond)

	msg, err := client.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefix+".*", msg.Pattern)
	assert.Equal(t, channel, msg.Channel)
	assert.Equal(t, []byte("payload"), msg.Payload)
}
