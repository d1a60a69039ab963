package pubsub

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultDialTimeout       = 5 * time.Second
	DefaultKeepaliveInterval = 10 * time.Second
)

// Options configures Sender, Receiver and Client
type Options struct {
	// DialTimeout bounds establishing a connection
	DialTimeout time.Duration

	// KeepaliveInterval is how long Receiver.Next waits without any inbound
	// frame before sending a PING. A PING still unanswered after another
	// interval fails the connection with ErrTimeout
	KeepaliveInterval time.Duration

	// MaxLength bounds a single line or bulk string read from the server.
	// 0 means resp.DefaultMaxLength
	MaxLength int

	Logger *zap.Logger
}

func (opt *Options) init() {
	if opt.DialTimeout <= 0 {
		opt.DialTimeout = DefaultDialTimeout
	}
	if opt.KeepaliveInterval <= 0 {
		opt.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
}

func newOptions(opt *Options) Options {
	var o Options
	if opt != nil {
		o = *opt
	}
	o.init()
	return o
}
