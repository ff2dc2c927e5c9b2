// Package main serves map data from several map servers under one origin.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nosadnile/bluemap-go/internal/config"
	"github.com/nosadnile/bluemap-go/internal/logger"
	"github.com/nosadnile/bluemap-go/internal/mapproxy"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if len(cfg.Proxy.Upstreams) == 0 {
		logger.Warn("no upstream map servers configured")
	}

	p, err := mapproxy.New(cfg.Proxy, cfg.Network, nil)
	if err != nil {
		logger.Error("invalid proxy config", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.ListenAndServe(ctx, cfg.Proxy.Listen); err != nil {
		logger.Error("map proxy error", zap.Error(err))
		stop()
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("map proxy stopped")
}
