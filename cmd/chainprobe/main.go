// chainprobe fetches one option chain and prints the banded matrix
// rows to the console. Useful for checking provider credentials and
// band placement before running the feed.
//
// Usage: go run ./cmd/chainprobe --config configs/feed.local.yaml --underlying KOSPI200 --expiry 202403
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dykwon/marketfeed/internal/config"
	"github.com/dykwon/marketfeed/internal/fetch"
	"github.com/dykwon/marketfeed/internal/matrix"
	"github.com/dykwon/marketfeed/internal/model"
	"github.com/dykwon/marketfeed/internal/provider"
	"github.com/dykwon/marketfeed/internal/timeutil"
)

func main() {
	configPath := flag.String("config", "configs/feed.local.yaml", "path to config file")
	underlying := flag.String("underlying", "KOSPI200", "underlying symbol")
	expiry := flag.String("expiry", "", "expiry tag, e.g. 202403")
	bands := flag.Int("bands", 2, "ITM/OTM bands per side to print")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if *expiry == "" {
		logger.Error("--expiry is required")
		os.Exit(1)
	}

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	norm, err := timeutil.NewNormalizer(cfg.Time.Zone)
	if err != nil {
		logger.Error("bad time zone", "error", err)
		os.Exit(1)
	}

	client := provider.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.AppKey,
		cfg.Provider.AppSecret,
		provider.WithLogger(logger),
		provider.WithTimeout(cfg.Provider.Timeout),
		provider.WithRateLimit(cfg.Provider.RatePerSec),
		provider.WithTokenSource(provider.StaticToken(cfg.Provider.AccessToken)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sub := model.Subscription{Kind: model.KindOptionChain, Symbol: *underlying, Expiry: *expiry}
	snap, err := fetch.NewChainFetcher(client, norm).Fetch(ctx, sub)
	if err != nil {
		logger.Error("chain fetch failed", "subscription", sub.ID(), "error", err)
		os.Exit(1)
	}

	chain := snap.(model.OptionChainSnapshot)
	fmt.Printf("%s %s  underlying=%.2f  calls=%d puts=%d  ts=%s\n",
		chain.Underlying, *expiry, chain.UnderlyingPrice,
		len(chain.Calls), len(chain.Puts),
		chain.TS.Format("2006-01-02 15:04:05"),
	)

	rows := matrix.NewBuilder(*bands).Build(chain)
	for _, row := range rows {
		fmt.Printf("%-14s", row.Metric)
		for _, cell := range row.Cells {
			if cell.Valid {
				fmt.Printf(" %s=%.4g", cell.Band, cell.Value)
			} else {
				fmt.Printf(" %s=-", cell.Band)
			}
		}
		fmt.Println()
	}
}
