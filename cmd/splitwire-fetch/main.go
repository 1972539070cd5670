package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"splitwire/pkg/config"
	"splitwire/pkg/dispatch"
	"splitwire/pkg/observability"
	"splitwire/pkg/registry"
	"splitwire/pkg/split"
	"splitwire/pkg/wire"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file (optional)")
	splitPath := flag.String("split", "", "path to an encoded split descriptor")
	queryID := flag.String("query", "", "query id (overrides config)")
	timeout := flag.Duration("timeout", 0, "overall dispatch deadline (0 = none)")
	flag.Parse()

	if *splitPath == "" {
		fatalf("missing -split")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if *queryID != "" {
		cfg.QueryID = *queryID
	}
	if cfg.QueryID == "" {
		fatalf("missing query id (set -query or query_id in config)")
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		fatalf("setup logger: %v", err)
	}
	defer logger.Sync()

	raw, err := os.ReadFile(*splitPath)
	if err != nil {
		fatalf("read split: %v", err)
	}
	desc, err := split.DecodeDescriptor(raw)
	if err != nil {
		fatalf("decode split: %v", err)
	}

	store := registry.NewStore(logger)
	ttl := time.Duration(cfg.Registry.TTLSeconds) * time.Second
	for _, si := range cfg.Registry.Static {
		store.Register(registry.Instance{
			Host:          si.Host,
			Hostname:      si.Hostname,
			ExecutionPort: si.ExecutionPort,
			ResultPort:    si.ResultPort,
			Alive:         true,
		}, ttl)
	}
	resolver := registry.NewResolver(store, registry.NetLookup{}, logger)

	disp := dispatch.New(resolver, dispatch.Options{
		QueryID:       cfg.QueryID,
		ListenAddr:    cfg.Net.UmbilicalListen,
		AdvertiseHost: cfg.Net.AdvertiseHost,
		DialTimeout:   time.Duration(cfg.Net.DialTimeoutMS) * time.Millisecond,
		Handler:       logHandler{log: logger},
	}, logger)

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	st, err := disp.Dispatch(ctx, desc)
	if err != nil {
		logger.Error("dispatch failed", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	n, err := io.Copy(os.Stdout, st)
	if err != nil {
		logger.Error("result stream failed", zap.Int64("bytes", n), zap.Error(err))
		os.Exit(1)
	}
	logger.Info("result stream complete", zap.Int64("bytes", n))
}

// logHandler surfaces daemon callbacks in the log.
type logHandler struct{ log *zap.Logger }

func (h logHandler) OnHeartbeat(hb wire.Heartbeat) {
	h.log.Debug("daemon heartbeat", zap.String("container", hb.ContainerID))
}

func (h logHandler) OnTaskStatus(st wire.TaskStatus) {
	h.log.Info("daemon task status",
		zap.String("container", st.ContainerID),
		zap.String("state", st.State))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
