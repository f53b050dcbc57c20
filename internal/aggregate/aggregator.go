package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dykwon/marketfeed/internal/matrix"
	"github.com/dykwon/marketfeed/internal/model"
)

// Gateway is the write side of the pipeline. Implementations must be
// idempotent per batch: re-sending a batch with the same natural keys
// may not duplicate rows.
type Gateway interface {
	UpsertCandles(ctx context.Context, candles []model.CandleSnapshot) error
	UpsertMatrixRows(ctx context.Context, rows []model.MatrixRow) error
}

// Config contains batching knobs for the aggregator.
type Config struct {
	// BatchSize is the number of accumulated candles or rows that
	// triggers an immediate flush.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// WriteTimeout bounds one gateway call.
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     200,
		FlushInterval: 5 * time.Second,
		WriteTimeout:  10 * time.Second,
	}
}

// Metrics holds aggregator counters.
type Metrics struct {
	Candles int64
	Rows    int64
	Flushes int64
	Errors  int64
	Dropped int64
}

// Aggregator reads snapshots off one channel in a single goroutine, so
// observed arrival order is a total order.
type Aggregator struct {
	cfg     Config
	input   <-chan model.Snapshot
	gateway Gateway
	builder *matrix.Builder
	logger  *slog.Logger

	// Batching
	candles     []model.CandleSnapshot
	rows        []model.MatrixRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// New creates an Aggregator consuming from input.
func New(cfg Config, input <-chan model.Snapshot, gateway Gateway, builder *matrix.Builder, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = matrix.NewBuilder(matrix.DefaultBandWidth)
	}
	return &Aggregator{
		cfg:     cfg,
		input:   input,
		gateway: gateway,
		builder: builder,
		logger:  logger,
		candles: make([]model.CandleSnapshot, 0, cfg.BatchSize),
		rows:    make([]model.MatrixRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming snapshots and flushing batches.
func (a *Aggregator) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	a.flushTicker = time.NewTicker(a.cfg.FlushInterval)

	a.wg.Add(1)
	go a.consumeLoop(ctx)

	a.wg.Add(1)
	go a.flushLoop(ctx)

	a.logger.Info("aggregator started",
		"batch_size", a.cfg.BatchSize,
		"flush_interval", a.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts the aggregator down and flushes whatever remains. The
// input channel closing also drains and flushes; Stop just bounds the
// wait.
func (a *Aggregator) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.flushTicker != nil {
		a.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		a.logger.Info("aggregator stopped")
	case <-ctx.Done():
		a.logger.Warn("aggregator stop timed out")
		err = ctx.Err()
	}

	// Pick up anything the producer managed to buffer after the
	// consumer loop exited, then flush the lot.
	a.drainRemaining()
	a.flush()
	return err
}

// Stats returns current counters.
func (a *Aggregator) Stats() Metrics {
	a.batchMu.Lock()
	defer a.batchMu.Unlock()
	return a.metrics
}

// consumeLoop is the single consumer. It exits when the input channel
// closes (after draining) or the context is cancelled.
func (a *Aggregator) consumeLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			a.drainRemaining()
			return
		case snap, ok := <-a.input:
			if !ok {
				a.flush()
				return
			}
			a.handleSnapshot(snap)
		}
	}
}

// drainRemaining consumes whatever is already buffered on the input
// channel after cancellation, so a clean shutdown loses nothing.
func (a *Aggregator) drainRemaining() {
	for {
		select {
		case snap, ok := <-a.input:
			if !ok {
				return
			}
			a.handleSnapshot(snap)
		default:
			return
		}
	}
}

// flushLoop periodically flushes the batch.
func (a *Aggregator) flushLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.flushTicker.C:
			a.flush()
		}
	}
}

// handleSnapshot routes one snapshot into the matching batch. Chains
// are expanded into matrix rows here, still on the consumer goroutine.
func (a *Aggregator) handleSnapshot(snap model.Snapshot) {
	a.batchMu.Lock()
	switch s := snap.(type) {
	case model.CandleSnapshot:
		a.candles = append(a.candles, s)
	case model.OptionChainSnapshot:
		a.rows = append(a.rows, a.builder.Build(s)...)
	default:
		a.logger.Warn("unknown snapshot kind", "subscription", snap.Subject().ID())
		a.batchMu.Unlock()
		return
	}
	shouldFlush := len(a.candles) >= a.cfg.BatchSize || len(a.rows) >= a.cfg.BatchSize
	a.batchMu.Unlock()

	if shouldFlush {
		a.flush()
	}
}

// flush takes ownership of both batches and writes them. A failed
// write drops the batch: upstream keeps producing and the next cycle's
// data stays fresh.
func (a *Aggregator) flush() {
	a.batchMu.Lock()
	if len(a.candles) == 0 && len(a.rows) == 0 {
		a.batchMu.Unlock()
		return
	}
	candles := a.candles
	rows := a.rows
	a.candles = make([]model.CandleSnapshot, 0, a.cfg.BatchSize)
	a.rows = make([]model.MatrixRow, 0, a.cfg.BatchSize)
	a.batchMu.Unlock()

	start := time.Now()

	// Flushes run against a fresh context so the final flush survives
	// shutdown cancellation.
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.WriteTimeout)
	defer cancel()

	var failed int64
	if len(candles) > 0 {
		if err := a.gateway.UpsertCandles(ctx, candles); err != nil {
			a.logger.Error("candle batch write failed", "error", err, "count", len(candles))
			failed += int64(len(candles))
			candles = nil
		}
	}
	if len(rows) > 0 {
		if err := a.gateway.UpsertMatrixRows(ctx, rows); err != nil {
			a.logger.Error("matrix batch write failed", "error", err, "count", len(rows))
			failed += int64(len(rows))
			rows = nil
		}
	}

	a.batchMu.Lock()
	a.metrics.Candles += int64(len(candles))
	a.metrics.Rows += int64(len(rows))
	a.metrics.Flushes++
	if failed > 0 {
		a.metrics.Errors++
		a.metrics.Dropped += failed
	}
	a.batchMu.Unlock()

	a.logger.Debug("flushed batches",
		"candles", len(candles),
		"rows", len(rows),
		"duration", time.Since(start),
	)
}
