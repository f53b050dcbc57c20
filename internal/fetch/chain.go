package fetch

import (
	"context"
	"errors"

	"github.com/dykwon/marketfeed/internal/model"
	"github.com/dykwon/marketfeed/internal/provider"
	"github.com/dykwon/marketfeed/internal/timeutil"
)

// ChainFetcher fetches the full option board for one expiry.
type ChainFetcher struct {
	client *provider.Client
	norm   *timeutil.Normalizer
}

// NewChainFetcher creates a ChainFetcher over the given client.
func NewChainFetcher(client *provider.Client, norm *timeutil.Normalizer) *ChainFetcher {
	return &ChainFetcher{client: client, norm: norm}
}

// Fetch performs a single board read and returns every call and put
// leg as an OptionChainSnapshot keyed at the current minute boundary.
func (f *ChainFetcher) Fetch(ctx context.Context, sub model.Subscription) (model.Snapshot, error) {
	chain, err := f.client.OptionChain(ctx, sub.Expiry, "")
	if err != nil {
		return nil, classify(sub.ID(), err)
	}

	if len(chain.Calls) == 0 && len(chain.Puts) == 0 {
		// The board thins out momentarily around the boundary.
		return nil, &Error{Class: Transient, Sub: sub.ID(), Err: errors.New("empty option board")}
	}

	return model.OptionChainSnapshot{
		Sub:             sub,
		TS:              timeutil.FloorToMinute(f.norm.NowCanonical()),
		Underlying:      sub.Symbol,
		UnderlyingPrice: chain.UnderlyingPrice,
		Calls:           convertLegs(chain.Calls, model.Call),
		Puts:            convertLegs(chain.Puts, model.Put),
	}, nil
}

func convertLegs(legs []provider.ChainLeg, side model.OptionSide) []model.OptionLeg {
	out := make([]model.OptionLeg, 0, len(legs))
	for _, l := range legs {
		out = append(out, model.OptionLeg{
			Strike:       l.Strike,
			Side:         side,
			Price:        l.Price,
			IV:           l.IV,
			Delta:        l.Delta,
			Gamma:        l.Gamma,
			Theta:        l.Theta,
			Vega:         l.Vega,
			Rho:          l.Rho,
			Volume:       l.Volume,
			OpenInterest: l.OpenInterest,
			HasOI:        l.HasOI,
		})
	}
	return out
}
