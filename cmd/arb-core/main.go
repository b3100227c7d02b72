package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/you/arb-core/internal/book"
	"github.com/you/arb-core/internal/config"
	"github.com/you/arb-core/internal/connectors/cex/binance"
	"github.com/you/arb-core/internal/connectors/chain"
	"github.com/you/arb-core/internal/connectors/redisfeed"
	"github.com/you/arb-core/internal/detector"
	"github.com/you/arb-core/internal/engine"
	"github.com/you/arb-core/internal/facade"
	"github.com/you/arb-core/internal/ledger"
	"github.com/you/arb-core/internal/metrics"
	"github.com/you/arb-core/internal/normalizer"
	"github.com/you/arb-core/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config")
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("received signal, shutting down...")
		cancel()
	}()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, logger)

	store := book.NewStore(cfg.StalenessWindow())
	led := ledger.New(nil, logger)

	// the redis sink is queued, never synchronous: detection workers must
	// not block on network round trips
	sinks := []detector.Sink{led}
	if cfg.Redis.Addr != "" {
		pub := redisfeed.NewPublisher(cfg)
		defer pub.Close()
		async := redisfeed.NewAsync(pub, 1024, logger)
		go async.Run(ctx)
		sinks = append(sinks, async)
		led.SetOnRemove(async.Remove)
		logger.Info("publishing opportunities to redis",
			zap.String("addr", cfg.Redis.Addr),
			zap.String("stream", cfg.Redis.Stream),
		)
	}

	det := detector.New(store, detector.Params{
		MinProfitBps:   cfg.Detector.MinProfitBps,
		SlippageBps:    cfg.Detector.SlippageBps,
		TTL:            cfg.OpportunityTTL(),
		VenueFeeBps:    cfg.VenueFees(),
		VenueLatencyMs: cfg.VenueLatencies(),
	}, detector.Fanout(sinks...), logger)

	// the ledger re-validates swept entries against the live book
	led.SetValidator(det.Revalidate)
	go led.Run(ctx, cfg.SweepInterval())

	venueIDs := make([]types.VenueID, 0, len(cfg.Venues))
	for id := range cfg.Venues {
		venueIDs = append(venueIDs, id)
	}
	sort.Slice(venueIDs, func(i, j int) bool { return venueIDs[i] < venueIDs[j] })

	norms := make(map[types.VenueID]*normalizer.Normalizer, len(cfg.Venues))
	feeds := make([]engine.Feed, 0, len(cfg.Venues))
	for _, id := range venueIDs {
		v := cfg.Venues[id]
		norms[id] = normalizer.New(id, v.Symbols)
		if v.WsURL == "" {
			logger.Warn("venue has no ws_url, feed skipped", zap.String("venue", string(id)))
			continue
		}
		symbols := make([]string, 0, len(v.Symbols))
		for s := range v.Symbols {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		feeds = append(feeds, binance.NewWS(id, v.WsURL, symbols, logger))
	}

	qf := facade.New(led, cexBalances(cfg, venueIDs), chainBalances(ctx, cfg, logger))
	logStartupBalances(ctx, qf, logger)

	logger.Info("arb-core running",
		zap.Int("venues", len(feeds)),
		zap.Float64("min_profit_bps", cfg.Detector.MinProfitBps),
		zap.Duration("ttl", cfg.OpportunityTTL()),
	)

	eng := engine.New(store, det, norms, cfg.Detector.Workers, logger)
	if err := eng.Run(ctx, feeds); err != nil && ctx.Err() == nil {
		logger.Fatal("engine stopped", zap.Error(err))
	}
	logger.Info("arb-core finished")
}

// cexBalances picks the first configured venue carrying REST credentials.
func cexBalances(cfg *config.Config, ordered []types.VenueID) facade.BalanceSource {
	for _, id := range ordered {
		v := cfg.Venues[id]
		if v.RestURL != "" && v.ApiKey != "" && v.ApiSecret != "" {
			return binance.NewClient(v.RestURL, v.ApiKey, v.ApiSecret)
		}
	}
	return nil
}

func chainBalances(ctx context.Context, cfg *config.Config, log *zap.Logger) facade.BalanceSource {
	if cfg.Chain.RPCHTTP == "" || cfg.Chain.WalletAddr == "" {
		return nil
	}
	c, err := chain.Dial(ctx, cfg.Chain.RPCHTTP, cfg.Chain.WalletAddr)
	if err != nil {
		log.Warn("chain client unavailable, balances disabled", zap.Error(err))
		return nil
	}
	return c
}

func logStartupBalances(ctx context.Context, qf *facade.Facade, log *zap.Logger) {
	bctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	snap, err := qf.Balances(bctx)
	if err != nil {
		log.Warn("balance snapshot failed", zap.Error(err))
		return
	}
	log.Info("balance snapshot",
		zap.Any("exchange", snap.Exchange),
		zap.Any("chain", snap.Chain),
	)
}
