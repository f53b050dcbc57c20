package fetch

import (
	"context"
	"fmt"

	"github.com/dykwon/marketfeed/internal/model"
)

// Fetcher performs one request/response cycle for one subscription.
// Implementations must not retry internally.
type Fetcher interface {
	Fetch(ctx context.Context, sub model.Subscription) (model.Snapshot, error)
}

// FetcherFunc is a function adapter for Fetcher.
type FetcherFunc func(context.Context, model.Subscription) (model.Snapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context, sub model.Subscription) (model.Snapshot, error) {
	return f(ctx, sub)
}

// Registry maps instrument kinds to their fetcher implementation.
type Registry struct {
	fetchers map[model.InstrumentKind]Fetcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[model.InstrumentKind]Fetcher)}
}

// Register binds a fetcher to an instrument kind, replacing any
// previous binding.
func (r *Registry) Register(kind model.InstrumentKind, f Fetcher) {
	r.fetchers[kind] = f
}

// For returns the fetcher for a subscription's instrument kind.
func (r *Registry) For(sub model.Subscription) (Fetcher, error) {
	f, ok := r.fetchers[sub.Kind]
	if !ok {
		return nil, fmt.Errorf("no fetcher registered for kind %q", sub.Kind)
	}
	return f, nil
}
