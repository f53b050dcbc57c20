package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dykwon/marketfeed/internal/model"
)

// Metrics holds gateway counters.
type Metrics struct {
	Candles int64
	Rows    int64
	Batches int64
	Errors  int64
}

// PostgresGateway writes candle and matrix batches with pgx batched
// upserts. It satisfies the aggregator's Gateway interface.
type PostgresGateway struct {
	db     *pgxpool.Pool
	logger *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// NewPostgresGateway creates a gateway over an existing pool.
func NewPostgresGateway(db *pgxpool.Pool, logger *slog.Logger) *PostgresGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGateway{db: db, logger: logger}
}

// Stats returns current counters.
func (g *PostgresGateway) Stats() Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.metrics
}

const upsertCandleSQL = `
	INSERT INTO %s (symbol, ts, timeframe, open, high, low, close, volume)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (symbol, ts) DO UPDATE SET
		timeframe = EXCLUDED.timeframe,
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume
`

// UpsertCandles writes one batch of candles, routing each snapshot to
// its family's table.
func (g *PostgresGateway) UpsertCandles(ctx context.Context, candles []model.CandleSnapshot) error {
	if len(candles) == 0 {
		return nil
	}

	start := time.Now()
	batch := &pgx.Batch{}
	queued := 0

	for _, c := range candles {
		table, ok := candleTable(c.Sub.Kind)
		if !ok {
			g.logger.Warn("candle for unknown instrument kind dropped", "subscription", c.Sub.ID())
			continue
		}
		r := transformCandle(c)
		batch.Queue(fmt.Sprintf(upsertCandleSQL, table),
			r.Symbol, r.TS, r.Timeframe, r.Open, r.High, r.Low, r.Close, r.Volume)
		queued++
	}
	if queued == 0 {
		return nil
	}

	if err := g.send(ctx, batch, queued); err != nil {
		return fmt.Errorf("upsert candles: %w", err)
	}

	g.mu.Lock()
	g.metrics.Candles += int64(queued)
	g.metrics.Batches++
	g.mu.Unlock()

	g.logger.Debug("candles upserted", "count", queued, "duration", time.Since(start))
	return nil
}

const upsertMatrixSQL = `
	INSERT INTO option_matrix (ts, underlying_symbol, metric, cells)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (ts, underlying_symbol, metric) DO UPDATE SET
		cells = EXCLUDED.cells
`

// UpsertMatrixRows writes one batch of banded matrix rows.
func (g *PostgresGateway) UpsertMatrixRows(ctx context.Context, rows []model.MatrixRow) error {
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()
	batch := &pgx.Batch{}

	for _, row := range rows {
		r, err := transformMatrixRow(row)
		if err != nil {
			return fmt.Errorf("encode matrix row %s/%s: %w", row.Underlying, row.Metric, err)
		}
		batch.Queue(upsertMatrixSQL, r.TS, r.Underlying, r.Metric, r.Cells)
	}

	if err := g.send(ctx, batch, len(rows)); err != nil {
		return fmt.Errorf("upsert matrix rows: %w", err)
	}

	g.mu.Lock()
	g.metrics.Rows += int64(len(rows))
	g.metrics.Batches++
	g.mu.Unlock()

	g.logger.Debug("matrix rows upserted", "count", len(rows), "duration", time.Since(start))
	return nil
}

// send executes one queued batch and drains its results.
func (g *PostgresGateway) send(ctx context.Context, batch *pgx.Batch, n int) error {
	results := g.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < n; i++ {
		if _, err := results.Exec(); err != nil {
			g.mu.Lock()
			g.metrics.Errors++
			g.mu.Unlock()
			return err
		}
	}
	return nil
}

// candleTable maps an instrument family to its table.
func candleTable(kind model.InstrumentKind) (string, bool) {
	switch kind {
	case model.KindEquity:
		return "equity_candles", true
	case model.KindFuture:
		return "future_candles", true
	}
	return "", false
}
