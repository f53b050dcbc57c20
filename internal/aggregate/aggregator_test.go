package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dykwon/marketfeed/internal/matrix"
	"github.com/dykwon/marketfeed/internal/model"
	"github.com/dykwon/marketfeed/internal/timeutil"
)

// memGateway records every batch it receives.
type memGateway struct {
	mu           sync.Mutex
	candleCalls  [][]model.CandleSnapshot
	matrixCalls  [][]model.MatrixRow
	failNext     bool
	candleErrors int
}

func (g *memGateway) UpsertCandles(ctx context.Context, candles []model.CandleSnapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failNext {
		g.failNext = false
		g.candleErrors++
		return errors.New("connection refused")
	}
	batch := make([]model.CandleSnapshot, len(candles))
	copy(batch, candles)
	g.candleCalls = append(g.candleCalls, batch)
	return nil
}

func (g *memGateway) UpsertMatrixRows(ctx context.Context, rows []model.MatrixRow) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	batch := make([]model.MatrixRow, len(rows))
	copy(batch, rows)
	g.matrixCalls = append(g.matrixCalls, batch)
	return nil
}

func (g *memGateway) candles() [][]model.CandleSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.candleCalls
}

func (g *memGateway) matrices() [][]model.MatrixRow {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.matrixCalls
}

func testConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Hour, // flush only on Stop unless size trips
		WriteTimeout:  time.Second,
	}
}

func TestAggregator_CycleBatches(t *testing.T) {
	// One cycle's worth of snapshots: a candle and a chain, both keyed
	// to the same minute.
	ts := timeutil.Canonical(2024, 3, 15, 9, 31, 0)
	candleSub := model.Subscription{Kind: model.KindEquity, Symbol: "005930", Timeframe: 1}
	chainSub := model.Subscription{Kind: model.KindOptionChain, Symbol: "KOSPI200", Expiry: "202403"}

	input := make(chan model.Snapshot, 4)
	input <- model.CandleSnapshot{Sub: candleSub, Symbol: "005930", Timeframe: 1, TS: ts, Close: 71500}
	input <- model.OptionChainSnapshot{
		Sub:             chainSub,
		TS:              ts,
		Underlying:      "KOSPI200",
		UnderlyingPrice: 350.0,
		Calls:           []model.OptionLeg{{Strike: 350, Side: model.Call, Price: 1.25, HasOI: true}},
	}
	close(input)

	gw := &memGateway{}
	a := New(testConfig(), input, gw, matrix.NewBuilder(2), nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	candleBatches := gw.candles()
	if len(candleBatches) != 1 || len(candleBatches[0]) != 1 {
		t.Fatalf("candle batches = %v, want one batch of one", candleBatches)
	}
	if !candleBatches[0][0].TS.Equal(ts) {
		t.Errorf("candle TS = %v, want %v", candleBatches[0][0].TS, ts)
	}

	matrixBatches := gw.matrices()
	if len(matrixBatches) != 1 {
		t.Fatalf("matrix batches = %d, want 1", len(matrixBatches))
	}
	if got := len(matrixBatches[0]); got != len(model.Metrics()) {
		t.Errorf("matrix batch size = %d, want %d (one row per metric)", got, len(model.Metrics()))
	}
	for _, row := range matrixBatches[0] {
		if !row.TS.Equal(ts) {
			t.Errorf("%s row TS = %v, want %v", row.Metric, row.TS, ts)
		}
	}
}

func TestAggregator_SizeTriggeredFlush(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 2

	sub := model.Subscription{Kind: model.KindEquity, Symbol: "005930", Timeframe: 1}
	input := make(chan model.Snapshot, 4)

	gw := &memGateway{}
	a := New(cfg, input, gw, nil, nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	input <- model.CandleSnapshot{Sub: sub, Symbol: "005930", TS: timeutil.Canonical(2024, 3, 15, 9, 31, 0)}
	input <- model.CandleSnapshot{Sub: sub, Symbol: "005930", TS: timeutil.Canonical(2024, 3, 15, 9, 32, 0)}

	// The second snapshot trips BatchSize; no Stop needed.
	deadline := time.Now().Add(time.Second)
	for len(gw.candles()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no flush after batch size reached")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := len(gw.candles()[0]); got != 2 {
		t.Errorf("flushed batch size = %d, want 2", got)
	}

	close(input)
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a.Stop(stopCtx)
}

func TestAggregator_FailedBatchDropped(t *testing.T) {
	sub := model.Subscription{Kind: model.KindEquity, Symbol: "005930", Timeframe: 1}
	input := make(chan model.Snapshot, 4)
	input <- model.CandleSnapshot{Sub: sub, Symbol: "005930", TS: timeutil.Canonical(2024, 3, 15, 9, 31, 0)}
	close(input)

	gw := &memGateway{failNext: true}
	a := New(testConfig(), input, gw, nil, nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a.Stop(stopCtx)

	if len(gw.candles()) != 0 {
		t.Errorf("candle batches = %d, want 0 (failed batch must be dropped, not retried)", len(gw.candles()))
	}
	stats := a.Stats()
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}
}

func TestAggregator_Lifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.FlushInterval = 50 * time.Millisecond
	input := make(chan model.Snapshot)

	a := New(cfg, input, &memGateway{}, nil, nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestAggregator_Stats(t *testing.T) {
	a := New(testConfig(), make(chan model.Snapshot), &memGateway{}, nil, nil)

	stats := a.Stats()
	if stats.Candles != 0 {
		t.Errorf("initial Candles = %d, want 0", stats.Candles)
	}
	if stats.Errors != 0 {
		t.Errorf("initial Errors = %d, want 0", stats.Errors)
	}
}
