package pubsub

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Client pairs a Sender and a Receiver on two connections to the same server,
// so a slow subscriber never holds up a publish and the other way around
type Client struct {
	sender   *Sender
	receiver *Receiver
}

// Dial opens both connections concurrently. If either fails, neither is kept
func Dial(ctx context.Context, addr string, opt *Options) (*Client, error) {
	var (
		sender   *Sender
		receiver *Receiver
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sender, err = DialSender(gctx, addr, opt)
		return err
	})
	g.Go(func() (err error) {
		receiver, err = DialReceiver(gctx, addr, opt)
		return err
	})

	if err := g.Wait(); err != nil {
		if sender != nil {
			sender.Close() //nolint:errcheck
		}
		if receiver != nil {
			receiver.Close() //nolint:errcheck
		}
		return nil, err
	}

	return Join(sender, receiver), nil
}

// Join builds a Client from separately created halves
func Join(sender *Sender, receiver *Receiver) *Client {
	return &Client{sender: sender, receiver: receiver}
}

// Split returns the two halves so they can be used from different goroutines
func (c *Client) Split() (*Sender, *Receiver) {
	return c.sender, c.receiver
}

// Publish posts payload to channel on the sending connection, see Sender.Publish
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	return c.sender.Publish(ctx, channel, payload)
}

// Subscribe subscribes the receiving connection to channels
func (c *Client) Subscribe(ctx context.Context, channels ...string) error {
	return c.receiver.Subscribe(ctx, channels...)
}

// Unsubscribe drops channels, or every channel when none are given
func (c *Client) Unsubscribe(ctx context.Context, channels ...string) error {
	return c.receiver.Unsubscribe(ctx, channels...)
}

// PSubscribe subscribes the receiving connection to patterns
func (c *Client) PSubscribe(ctx context.Context, patterns ...string) error {
	return c.receiver.PSubscribe(ctx, patterns...)
}

// PUnsubscribe drops patterns, or every pattern when none are given
func (c *Client) PUnsubscribe(ctx context.Context, patterns ...string) error {
	return c.receiver.PUnsubscribe(ctx, patterns...)
}

// Next returns the next message, see Receiver.Next
func (c *Client) Next(ctx context.Context) (Message, error) {
	return c.receiver.Next(ctx)
}

// Close closes both connections
func (c *Client) Close() error {
	return errors.Join(c.sender.Close(), c.receiver.Close())
}
