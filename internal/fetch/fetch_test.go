package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dykwon/marketfeed/internal/model"
	"github.com/dykwon/marketfeed/internal/provider"
	"github.com/dykwon/marketfeed/internal/timeutil"
)

func testNormalizer(t *testing.T) *timeutil.Normalizer {
	t.Helper()
	n, err := timeutil.NewNormalizer("Asia/Seoul")
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}
	return n
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(model.KindEquity, FetcherFunc(func(ctx context.Context, sub model.Subscription) (model.Snapshot, error) {
		called = true
		return model.CandleSnapshot{Sub: sub}, nil
	}))

	sub := model.Subscription{Kind: model.KindEquity, Symbol: "005930", Timeframe: 1}
	f, err := r.For(sub)
	if err != nil {
		t.Fatalf("For failed: %v", err)
	}
	if _, err := f.Fetch(context.Background(), sub); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !called {
		t.Error("registered fetcher was not invoked")
	}

	if _, err := r.For(model.Subscription{Kind: model.KindFuture}); err == nil {
		t.Error("For returned a fetcher for an unregistered kind")
	}
}

func TestCandleFetcher_CompletedBarSelection(t *testing.T) {
	cases := []struct {
		name string
		rows []provider.Candle
		want float64 // Close of the selected bar
	}{
		{
			name: "mid-session picks second row",
			rows: []provider.Candle{
				{TS: timeutil.Canonical(2024, 3, 15, 9, 31, 0), Close: 100},
				{TS: timeutil.Canonical(2024, 3, 15, 9, 30, 0), Close: 99},
			},
			want: 99,
		},
		{
			name: "session close picks first row",
			rows: []provider.Candle{
				{TS: timeutil.Canonical(2024, 3, 15, 15, 30, 0), Close: 105},
				{TS: timeutil.Canonical(2024, 3, 15, 15, 29, 0), Close: 104},
			},
			want: 105,
		},
		{
			name: "single row falls back",
			rows: []provider.Candle{
				{TS: timeutil.Canonical(2024, 3, 15, 9, 1, 0), Close: 98},
			},
			want: 98,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bar, err := completedBar(c.rows)
			if err != nil {
				t.Fatalf("completedBar failed: %v", err)
			}
			if bar.Close != c.want {
				t.Errorf("selected Close = %v, want %v", bar.Close, c.want)
			}
		})
	}

	if _, err := completedBar(nil); err == nil {
		t.Error("completedBar accepted an empty chart")
	}
}

func TestCandleFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"rt_cd": "0",
			"output2": [
				{"stck_bsop_date":"20240315","stck_cntg_hour":"093100","stck_oprc":"100","stck_hgpr":"101","stck_lwpr":"99","stck_prpr":"100.5","cntg_vol":"10"},
				{"stck_bsop_date":"20240315","stck_cntg_hour":"093000","stck_oprc":"99","stck_hgpr":"100","stck_lwpr":"98","stck_prpr":"99.5","cntg_vol":"20"}
			]
		}`))
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "key", "secret", provider.WithRateLimit(1000))
	norm := testNormalizer(t)
	f := NewCandleFetcher(client, norm)

	sub := model.Subscription{Kind: model.KindEquity, Symbol: "005930", Timeframe: 1}

	before := timeutil.FloorToMinute(norm.NowCanonical())
	snap, err := f.Fetch(context.Background(), sub)
	after := timeutil.FloorToMinute(norm.NowCanonical())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	candle, ok := snap.(model.CandleSnapshot)
	if !ok {
		t.Fatalf("snapshot type = %T, want CandleSnapshot", snap)
	}
	if candle.Close != 99.5 {
		t.Errorf("Close = %v, want 99.5 (completed bar)", candle.Close)
	}
	if candle.TS.Before(before) || candle.TS.After(after) {
		t.Errorf("TS = %v, want current minute boundary", candle.TS)
	}
	if candle.TS.Second() != 0 {
		t.Errorf("TS seconds = %d, want 0", candle.TS.Second())
	}
}

func TestCandleFetcher_WrongKind(t *testing.T) {
	f := NewCandleFetcher(nil, testNormalizer(t))
	_, err := f.Fetch(context.Background(), model.Subscription{Kind: model.KindOptionChain})

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("error = %T, want *Error", err)
	}
	if fe.Transient() {
		t.Error("kind mismatch should be permanent")
	}
}

func TestChainFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"rt_cd": "0",
			"output1": [{"acpr":"350.0","optn_prpr":"2.5","delta_val":"0.5","unch_prpr":"351.0","hts_otst_stpl_qty":"10"}],
			"output2": [{"acpr":"350.0","optn_prpr":"1.9","delta_val":"-0.5","unch_prpr":"351.0","hts_otst_stpl_qty":"20"}]
		}`))
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "key", "secret", provider.WithRateLimit(1000))
	f := NewChainFetcher(client, testNormalizer(t))

	sub := model.Subscription{Kind: model.KindOptionChain, Symbol: "KOSPI200", Expiry: "202403"}
	snap, err := f.Fetch(context.Background(), sub)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	chain, ok := snap.(model.OptionChainSnapshot)
	if !ok {
		t.Fatalf("snapshot type = %T, want OptionChainSnapshot", snap)
	}
	if chain.Underlying != "KOSPI200" {
		t.Errorf("Underlying = %q, want KOSPI200", chain.Underlying)
	}
	if chain.UnderlyingPrice != 351.0 {
		t.Errorf("UnderlyingPrice = %v, want 351.0", chain.UnderlyingPrice)
	}
	if len(chain.Calls) != 1 || chain.Calls[0].Side != model.Call {
		t.Errorf("calls = %+v", chain.Calls)
	}
	if len(chain.Puts) != 1 || chain.Puts[0].Side != model.Put {
		t.Errorf("puts = %+v", chain.Puts)
	}
	if chain.TS.Second() != 0 {
		t.Errorf("TS seconds = %d, want 0", chain.TS.Second())
	}
}

func TestChainFetcher_EmptyBoard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"0","output1":[],"output2":[]}`))
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "key", "secret", provider.WithRateLimit(1000))
	f := NewChainFetcher(client, testNormalizer(t))

	_, err := f.Fetch(context.Background(), model.Subscription{Kind: model.KindOptionChain, Expiry: "202403"})

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("error = %T, want *Error", err)
	}
	if !fe.Transient() {
		t.Error("empty board should be transient")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"server fault", &provider.APIError{StatusCode: 500}, true},
		{"http rate limit", &provider.APIError{StatusCode: 429}, true},
		{"quota code", &provider.APIError{StatusCode: 200, Code: "EGW00201"}, true},
		{"auth rejected", &provider.APIError{StatusCode: 401}, false},
		{"bad request", &provider.APIError{StatusCode: 400}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fe := classify("equity/005930/1m", c.err)
			if fe.Transient() != c.transient {
				t.Errorf("Transient() = %v, want %v", fe.Transient(), c.transient)
			}
		})
	}
}
