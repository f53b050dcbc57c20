package feed

import (
	"context"
	"testing"
	"time"

	"github.com/dykwon/marketfeed/internal/config"
	"github.com/dykwon/marketfeed/internal/model"
)

// nopGateway satisfies aggregate.Gateway for wiring tests.
type nopGateway struct{}

func (nopGateway) UpsertCandles(context.Context, []model.CandleSnapshot) error { return nil }
func (nopGateway) UpsertMatrixRows(context.Context, []model.MatrixRow) error   { return nil }

func testFeedConfig() *config.FeedConfig {
	return &config.FeedConfig{
		Instance: config.InstanceConfig{ID: "test"},
		Provider: config.ProviderConfig{
			BaseURL:    "https://api.example.com",
			AppKey:     "key",
			AppSecret:  "secret",
			Timeout:    time.Second,
			RatePerSec: 100,
		},
		Scheduler: config.SchedulerConfig{
			Offset:       2 * time.Second,
			MaxRetries:   3,
			BackoffBase:  time.Second,
			BackoffCap:   8 * time.Second,
			GraceWindow:  10 * time.Second,
			FetchTimeout: time.Second,
			BufferSize:   16,
		},
		Aggregator: config.AggregatorConfig{
			BatchSize:     10,
			FlushInterval: time.Second,
			WriteTimeout:  time.Second,
		},
		Matrix: config.MatrixConfig{BandWidth: 2, TieBreak: "lower"},
		Time:   config.TimeConfig{Zone: "Asia/Seoul"},
		Subscriptions: []config.SubscriptionConfig{
			{Kind: "equity", Symbol: "005930", TimeframeMinutes: 1},
			{Kind: "future", Symbol: "101W9000", TimeframeMinutes: 1},
			{Kind: "option_chain", Symbol: "KOSPI200", Expiry: "202403"},
		},
	}
}

func TestBuilder(t *testing.T) {
	subs, err := NewBuilder().
		AddEquity("005930", 1).
		AddFuture("101W9000", 1).
		AddOptionChain("KOSPI200", "202403").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("subscriptions = %d, want 3", len(subs))
	}
	if subs[2].Kind != model.KindOptionChain || subs[2].Expiry != "202403" {
		t.Errorf("subs[2] = %+v", subs[2])
	}
}

func TestBuilder_Duplicate(t *testing.T) {
	_, err := NewBuilder().
		AddEquity("005930", 1).
		AddEquity("005930", 1).
		Build()
	if err == nil {
		t.Error("Build accepted a duplicate subscription")
	}
}

func TestBuilder_Empty(t *testing.T) {
	if _, err := NewBuilder().Build(); err == nil {
		t.Error("Build accepted an empty subscription set")
	}
}

func TestBuilder_FrozenAfterBuild(t *testing.T) {
	b := NewBuilder().AddEquity("005930", 1)
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := b.AddEquity("000660", 1).Build(); err == nil {
		t.Error("Build accepted an add after freeze")
	}
}

func TestBuilder_EmptySymbol(t *testing.T) {
	if _, err := NewBuilder().AddEquity("", 1).Build(); err == nil {
		t.Error("Build accepted an empty symbol")
	}
}

func TestNew_WiresSubscriptions(t *testing.T) {
	f, err := New(testFeedConfig(), nopGateway{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := len(f.Subscriptions()); got != 3 {
		t.Errorf("subscriptions = %d, want 3", got)
	}
}

func TestNew_BadZone(t *testing.T) {
	cfg := testFeedConfig()
	cfg.Time.Zone = "Mars/Olympus"
	if _, err := New(cfg, nopGateway{}, nil); err == nil {
		t.Error("New accepted an unknown time zone")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	f, err := New(testFeedConfig(), nopGateway{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned %v, want nil on clean cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
