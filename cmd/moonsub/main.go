package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/eternalApril/moonsub/internal/config"
	"github.com/eternalApril/moonsub/internal/logger"
	"github.com/eternalApril/moonsub/internal/pubsub"
	"go.uber.org/zap"
)

type publishCmd struct {
	Channel string `arg:"positional,required" help:"channel to publish to"`
	Message string `arg:"positional,required" help:"message payload"`
}

type subscribeCmd struct {
	Names []string `arg:"positional,required" help:"channels, or patterns with psubscribe"`
	Count int      `arg:"-n,--count" help:"exit after this many messages, 0 means never"`
}

type args struct {
	Config     string        `arg:"--config" default:"." help:"directory holding config.yaml"`
	Addr       string        `arg:"--addr" env:"MOONSUB_ADDR" help:"server address, overrides client.host and client.port"`
	Publish    *publishCmd   `arg:"subcommand:publish" help:"publish one message and print the number of receivers"`
	Subscribe  *subscribeCmd `arg:"subcommand:subscribe" help:"print messages published to channels"`
	PSubscribe *subscribeCmd `arg:"subcommand:psubscribe" help:"print messages published to channels matching patterns"`
}

func (args) Description() string {
	return "moonsub is a RESP publish/subscribe client"
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	cfg, err := config.Load(a.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	addr := a.Addr
	if addr == "" {
		addr = cfg.Client.Addr()
	}

	opt := &pubsub.Options{
		DialTimeout:       cfg.Client.DialTimeout,
		KeepaliveInterval: cfg.Client.KeepaliveInterval,
		MaxLength:         cfg.Client.MaxLength,
		Logger:            log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case a.Publish != nil:
		err = publish(ctx, addr, opt, a.Publish)
	case a.Subscribe != nil:
		err = subscribe(ctx, addr, opt, a.Subscribe, false)
	case a.PSubscribe != nil:
		err = subscribe(ctx, addr, opt, a.PSubscribe, true)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("command failed", zap.String("addr", addr), zap.Error(err))
		log.Sync() //nolint:errcheck
		os.Exit(1)
	}
}

func publish(ctx context.Context, addr string, opt *pubsub.Options, cmd *publishCmd) error {
	sender, err := pubsub.DialSender(ctx, addr, opt)
	if err != nil {
		return err
	}
	defer sender.Close() //nolint:errcheck

	n, err := sender.Publish(ctx, cmd.Channel, []byte(cmd.Message))
	if err != nil {
		return err
	}

	fmt.Println(n)
	return nil
}

func subscribe(ctx context.Context, addr string, opt *pubsub.Options, cmd *subscribeCmd, patterns bool) error {
	receiver, err := pubsub.DialReceiver(ctx, addr, opt)
	if err != nil {
		return err
	}
	defer receiver.Close() //nolint:errcheck

	if patterns {
		err = receiver.PSubscribe(ctx, cmd.Names...)
	} else {
		err = receiver.Subscribe(ctx, cmd.Names...)
	}
	if err != nil {
		return err
	}

	opt.Logger.Info("subscribed", zap.String("addr", addr), zap.Strings("names", cmd.Names))

	for received := 0; cmd.Count == 0 || received < cmd.Count; {
		msg, err := receiver.Next(ctx)
		if err != nil {
			var serverErr *pubsub.ServerError
			if errors.As(err, &serverErr) {
				opt.Logger.Warn("server error", zap.String("msg", serverErr.Msg))
				continue
			}
			return err
		}
		received++

		if msg.Pattern != "" {
			fmt.Printf("%s %s %s\n", msg.Pattern, msg.Channel, msg.Payload)
		} else {
			fmt.Printf("%s %s\n", msg.Channel, msg.Payload)
		}
	}

	return nil
}
