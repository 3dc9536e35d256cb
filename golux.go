package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golux/channel"
	"golux/indicator"
	"golux/reader"
)

var myBuild string

func main() {
	cfgfile := flag.String("cfg", "golux.cfg", "Config file")
	flag.Parse()

	cfg, err := loadConfig(*cfgfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "golux: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log)
	slog.Info("golux starting", "build", myBuild, "readers", len(cfg.Readers))

	// Claim the indicator outputs for every configured binding up front.
	ids := make([]int, 0, len(cfg.Readers))
	for _, rb := range cfg.Readers {
		ids = append(ids, rb.Indicator)
	}
	bank, err := indicator.New(cfg.Indicator, ids)
	if err != nil {
		slog.Error("init indicators", "error", err)
		os.Exit(1)
	}

	classifier := NewClassifier(cfg.Header, cfg.Tags)

	// Bind readers in slot order. An unresponsive reader is excluded, not
	// fatal, unless the active set drops below the configured minimum.
	var bound []boundReader
	for i, rb := range cfg.Readers {
		p, err := reader.New(rb.Reader)
		if err != nil {
			slog.Warn("reader excluded", "slot", i, "device", rb.Reader.Device,
				"fault", "transport", "error", err)
			continue
		}
		slog.Info("reader bound", "slot", i, "type", rb.Reader.Type,
			"device", rb.Reader.Device, "indicator", rb.Indicator)
		bound = append(bound, boundReader{
			slot:   NewSlot(i, rb.Indicator, classifier, bank),
			poller: p,
		})
	}
	if len(bound) < cfg.MinReaders {
		slog.Error("not enough readers bound", "bound", len(bound), "min", cfg.MinReaders)
		bank.Release()
		os.Exit(1)
	}

	ch, err := channel.New(cfg.Channel, cfg.ClientID)
	if err != nil {
		slog.Error("init channel", "error", err)
		bank.Release()
		os.Exit(1)
	}
	if !ch.Connect() {
		slog.Warn("lighting server unreachable, retrying each cycle",
			"host", cfg.Channel.Host, "fault", "channel")
	}

	ctrl := NewController(bound, ch, bank,
		time.Duration(cfg.PollTimeoutMS)*time.Millisecond,
		time.Duration(cfg.CycleMS)*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("stop signal received", "signal", sig.String())
		cancel()
	}()

	ctrl.Run(ctx)
	ctrl.Shutdown()
	slog.Info("shutdown complete")
}

func setupLogging(cfg LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
