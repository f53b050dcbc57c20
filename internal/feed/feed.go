package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dykwon/marketfeed/internal/aggregate"
	"github.com/dykwon/marketfeed/internal/config"
	"github.com/dykwon/marketfeed/internal/fetch"
	"github.com/dykwon/marketfeed/internal/matrix"
	"github.com/dykwon/marketfeed/internal/model"
	"github.com/dykwon/marketfeed/internal/provider"
	"github.com/dykwon/marketfeed/internal/report"
	"github.com/dykwon/marketfeed/internal/scheduler"
	"github.com/dykwon/marketfeed/internal/timeutil"
)

// stopTimeout bounds each component's shutdown.
const stopTimeout = 30 * time.Second

// Feed owns one assembled pipeline.
type Feed struct {
	subs       []model.Subscription
	scheduler  *scheduler.Scheduler
	aggregator *aggregate.Aggregator
	logger     *slog.Logger
}

// New wires a pipeline from config: provider client, fetcher registry,
// scheduler, matrix builder, and aggregator feeding the gateway.
func New(cfg *config.FeedConfig, gateway aggregate.Gateway, logger *slog.Logger) (*Feed, error) {
	if logger == nil {
		logger = slog.Default()
	}

	subs, err := NewBuilderFromConfig(cfg.Subscriptions).Build()
	if err != nil {
		return nil, fmt.Errorf("build subscriptions: %w", err)
	}

	norm, err := timeutil.NewNormalizer(cfg.Time.Zone)
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}

	client := newProviderClient(cfg.Provider, logger)

	registry := fetch.NewRegistry()
	candles := fetch.NewCandleFetcher(client, norm)
	registry.Register(model.KindEquity, candles)
	registry.Register(model.KindFuture, candles)
	registry.Register(model.KindOptionChain, fetch.NewChainFetcher(client, norm))

	schedCfg := scheduler.Config{
		Offset:       cfg.Scheduler.Offset,
		MaxRetries:   cfg.Scheduler.MaxRetries,
		BackoffBase:  cfg.Scheduler.BackoffBase,
		BackoffCap:   cfg.Scheduler.BackoffCap,
		Grace:        cfg.Scheduler.GraceWindow,
		FetchTimeout: cfg.Scheduler.FetchTimeout,
		BufferSize:   cfg.Scheduler.BufferSize,
	}
	sched := scheduler.New(schedCfg, subs, registry, report.NewLogSink(logger), norm, logger)

	builderOpts := []matrix.Option{}
	if cfg.Matrix.TieBreak == "higher" {
		builderOpts = append(builderOpts, matrix.WithTieBreak(matrix.TieBreakHigher))
	}
	mb := matrix.NewBuilder(cfg.Matrix.BandWidth, builderOpts...)

	aggCfg := aggregate.Config{
		BatchSize:     cfg.Aggregator.BatchSize,
		FlushInterval: cfg.Aggregator.FlushInterval,
		WriteTimeout:  cfg.Aggregator.WriteTimeout,
	}
	agg := aggregate.New(aggCfg, sched.Snapshots(), gateway, mb, logger)

	return &Feed{
		subs:       subs,
		scheduler:  sched,
		aggregator: agg,
		logger:     logger,
	}, nil
}

// Subscriptions returns the frozen subscription set.
func (f *Feed) Subscriptions() []model.Subscription {
	out := make([]model.Subscription, len(f.subs))
	copy(out, f.subs)
	return out
}

// Run starts both stages and blocks until ctx is cancelled or a stage
// fails to start. Shutdown stops the scheduler first so its snapshot
// channel closes and the aggregator drains before its final flush.
func (f *Feed) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	schedDone := make(chan struct{})
	g.Go(func() error {
		if err := f.scheduler.Start(gctx); err != nil {
			close(schedDone)
			return fmt.Errorf("start scheduler: %w", err)
		}
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		err := f.scheduler.Stop(stopCtx)
		close(schedDone)
		return err
	})

	g.Go(func() error {
		if err := f.aggregator.Start(gctx); err != nil {
			return fmt.Errorf("start aggregator: %w", err)
		}
		<-gctx.Done()
		<-schedDone // snapshot channel is closed once the scheduler stops

		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return f.aggregator.Stop(stopCtx)
	})

	f.logger.Info("feed running", "subscriptions", len(f.subs))
	return g.Wait()
}

// newProviderClient maps provider config onto client options.
func newProviderClient(cfg config.ProviderConfig, logger *slog.Logger) *provider.Client {
	opts := []provider.ClientOption{
		provider.WithLogger(logger),
		provider.WithTimeout(cfg.Timeout),
		provider.WithRateLimit(cfg.RatePerSec),
		provider.WithTokenSource(provider.StaticToken(cfg.AccessToken)),
	}

	ids := provider.DefaultTRIDs()
	if cfg.TRIDs.EquityMinute != "" {
		ids.EquityMinute = cfg.TRIDs.EquityMinute
	}
	if cfg.TRIDs.FutureMinute != "" {
		ids.FutureMinute = cfg.TRIDs.FutureMinute
	}
	if cfg.TRIDs.OptionChain != "" {
		ids.OptionChain = cfg.TRIDs.OptionChain
	}
	opts = append(opts, provider.WithTRIDs(ids))

	return provider.NewClient(cfg.BaseURL, cfg.AppKey, cfg.AppSecret, opts...)
}
