package feed

import (
	"errors"
	"fmt"

	"github.com/dykwon/marketfeed/internal/config"
	"github.com/dykwon/marketfeed/internal/model"
)

// Builder accumulates the subscription set. Add calls are chainable;
// Build freezes the set and further adds fail.
type Builder struct {
	subs  []model.Subscription
	seen  map[string]bool
	built bool
	err   error
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]bool)}
}

// NewBuilderFromConfig seeds a Builder from config subscriptions.
func NewBuilderFromConfig(subs []config.SubscriptionConfig) *Builder {
	b := NewBuilder()
	for _, s := range subs {
		switch s.Kind {
		case "equity":
			b.AddEquity(s.Symbol, s.TimeframeMinutes)
		case "future":
			b.AddFuture(s.Symbol, s.TimeframeMinutes)
		case "option_chain":
			b.AddOptionChain(s.Symbol, s.Expiry)
		default:
			b.fail(fmt.Errorf("unknown subscription kind %q", s.Kind))
		}
	}
	return b
}

// AddEquity subscribes to minute candles for an equity symbol.
func (b *Builder) AddEquity(symbol string, timeframe int) *Builder {
	return b.add(model.Subscription{Kind: model.KindEquity, Symbol: symbol, Timeframe: timeframe})
}

// AddFuture subscribes to minute candles for a futures symbol.
func (b *Builder) AddFuture(symbol string, timeframe int) *Builder {
	return b.add(model.Subscription{Kind: model.KindFuture, Symbol: symbol, Timeframe: timeframe})
}

// AddOptionChain subscribes to the full chain for an underlying and
// expiry.
func (b *Builder) AddOptionChain(underlying, expiry string) *Builder {
	return b.add(model.Subscription{Kind: model.KindOptionChain, Symbol: underlying, Expiry: expiry})
}

func (b *Builder) add(s model.Subscription) *Builder {
	if b.built {
		return b.fail(errors.New("builder is frozen after Build"))
	}
	if s.Symbol == "" {
		return b.fail(fmt.Errorf("%s subscription has empty symbol", s.Kind))
	}
	id := s.ID()
	if b.seen[id] {
		return b.fail(fmt.Errorf("duplicate subscription %s", id))
	}
	b.seen[id] = true
	b.subs = append(b.subs, s)
	return b
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Build freezes and returns the subscription set.
func (b *Builder) Build() ([]model.Subscription, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.subs) == 0 {
		return nil, errors.New("no subscriptions added")
	}
	b.built = true
	out := make([]model.Subscription, len(b.subs))
	copy(out, b.subs)
	return out, nil
}
