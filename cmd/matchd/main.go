package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joripage/ergodic/config"
	"github.com/joripage/ergodic/pkg/engine"
	"github.com/joripage/ergodic/pkg/gateway/fixapi"
	"github.com/joripage/ergodic/pkg/gateway/httpapi"
	"github.com/joripage/ergodic/pkg/logging"
	"github.com/joripage/ergodic/pkg/tradefeed"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	if err := run(configFile); err != nil {
		fmt.Fprintln(os.Stderr, "matchd:", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(level).Named(cfg.ServiceName)
	defer logger.Sync() // nolint
	defer logger.ReplaceGlobals()()

	engineCfg, err := cfg.Engine.Build()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	eng := engine.New(engineCfg, engine.WithLogger(logger.Zap().Named("engine")))
	if err := eng.Register(reg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := tradefeed.NewRecorder(cfg.Feed.RecentTrades)
	hub := httpapi.NewHub(logger.Named("ws"), cfg.HTTP.AllowedOrigins)
	publishers, err := buildPublishers(ctx, cfg, logger.Zap())
	if err != nil {
		return err
	}
	publishers = append([]tradefeed.Publisher{recorder, hub}, publishers...)

	dispatcher := tradefeed.NewDispatcher(publishers, tradefeed.WithDispatcherLogger(logger.Zap().Named("feed")))
	if err := dispatcher.Register(reg); err != nil {
		return err
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn(context.Background(), "close trade feed", zap.Error(err))
		}
	}()

	handler := httpapi.NewHandler(eng, logger.Named("http"),
		httpapi.WithLenientSide(cfg.HTTP.LenientSide),
		httpapi.WithRecorder(recorder),
	)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: ms(cfg.HTTP.RequestTimeoutMs),
		Gatherer:       reg,
		Hub:            hub,
	})

	var fixGateway *fixapi.Gateway
	if cfg.FIX.Enabled {
		fixGateway, err = fixapi.NewGateway(fixapi.GatewayConfig{
			ConfigFilepath: cfg.FIX.ConfigFile,
			TickSize:       cfg.FIX.TickSize,
		}, eng, logger.Zap().Named("fix"))
		if err != nil {
			return err
		}
		if err := fixGateway.Start(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// The engine and the feed stop by draining, not by cancellation.
	g.Go(func() error { return eng.Run(context.Background()) })
	g.Go(func() error { return dispatcher.Run(context.Background(), eng.Trades()) })
	g.Go(func() error {
		return httpapi.Serve(gctx, httpapi.ServerConfig{
			Addr:            cfg.HTTP.Addr,
			ReadTimeout:     ms(cfg.HTTP.ReadTimeoutMs),
			WriteTimeout:    ms(cfg.HTTP.WriteTimeoutMs),
			ShutdownTimeout: ms(cfg.HTTP.ShutdownTimeoutMs),
		}, router, logger.Zap().Named("http"))
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down")
		if fixGateway != nil {
			fixGateway.Stop()
		}
		eng.Close()
		return nil
	})

	return g.Wait()
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}
