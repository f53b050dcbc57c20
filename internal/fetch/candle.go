package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dykwon/marketfeed/internal/model"
	"github.com/dykwon/marketfeed/internal/provider"
	"github.com/dykwon/marketfeed/internal/timeutil"
)

// sessionCloseClock is the board clock at the cash session close. The
// final bar is published in row 0 at that instant instead of row 1.
const sessionCloseClock = "1530"

// CandleFetcher fetches the most recent completed minute bar for an
// equity or future subscription.
type CandleFetcher struct {
	client *provider.Client
	norm   *timeutil.Normalizer
}

// NewCandleFetcher creates a CandleFetcher over the given client.
func NewCandleFetcher(client *provider.Client, norm *timeutil.Normalizer) *CandleFetcher {
	return &CandleFetcher{client: client, norm: norm}
}

// Fetch performs a single chart read and returns the completed bar as
// a CandleSnapshot keyed at the current minute boundary.
func (f *CandleFetcher) Fetch(ctx context.Context, sub model.Subscription) (model.Snapshot, error) {
	now := f.norm.NowCanonical()

	var (
		rows []provider.Candle
		err  error
	)
	switch sub.Kind {
	case model.KindEquity:
		rows, err = f.client.EquityMinuteCandles(ctx, sub.Symbol, now)
	case model.KindFuture:
		rows, err = f.client.FutureMinuteCandles(ctx, sub.Symbol, now)
	default:
		return nil, &Error{
			Class: Permanent,
			Sub:   sub.ID(),
			Err:   fmt.Errorf("candle fetch for kind %q", sub.Kind),
		}
	}
	if err != nil {
		return nil, classify(sub.ID(), err)
	}

	bar, err := completedBar(rows)
	if err != nil {
		// An empty chart right at the boundary fills in on retry.
		return nil, &Error{Class: Transient, Sub: sub.ID(), Err: err}
	}

	return model.CandleSnapshot{
		Sub:       sub,
		Symbol:    sub.Symbol,
		Timeframe: sub.Timeframe,
		TS:        timeutil.FloorToMinute(now),
		Open:      bar.Open,
		High:      bar.High,
		Low:       bar.Low,
		Close:     bar.Close,
		Volume:    bar.Volume,
	}, nil
}

// completedBar selects the most recent finished bar. Rows arrive
// most-recent-first; row 0 is still forming except at session close.
func completedBar(rows []provider.Candle) (provider.Candle, error) {
	if len(rows) == 0 {
		return provider.Candle{}, errors.New("chart response had no rows")
	}
	if rows[0].TS.Format("1504") == sessionCloseClock || len(rows) == 1 {
		return rows[0], nil
	}
	return rows[1], nil
}
