package model

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// InstrumentKind identifies the family of a subscribed instrument.
type InstrumentKind string

const (
	KindEquity      InstrumentKind = "equity"
	KindFuture      InstrumentKind = "future"
	KindOptionChain InstrumentKind = "option_chain"
)

// Valid reports whether k names a known instrument family.
func (k InstrumentKind) Valid() bool {
	switch k {
	case KindEquity, KindFuture, KindOptionChain:
		return true
	}
	return false
}

// Subscription names one instrument/stream the pipeline polls every
// cycle. Subscriptions are registered through the feed builder before
// start and never change afterwards.
type Subscription struct {
	Kind      InstrumentKind
	Symbol    string // symbol for candles, underlying for option chains
	Timeframe int    // bar width in minutes (candles only)
	Expiry    string // expiry tag, e.g. "202403" (option chains only)
}

// ID returns a stable identifier for logging and failure records.
func (s Subscription) ID() string {
	if s.Kind == KindOptionChain {
		return fmt.Sprintf("%s/%s@%s", s.Kind, s.Symbol, s.Expiry)
	}
	return fmt.Sprintf("%s/%s/%dm", s.Kind, s.Symbol, s.Timeframe)
}

// -----------------------------------------------------------------------------
// Snapshots
// -----------------------------------------------------------------------------

// Snapshot is one immutable unit of freshly fetched data produced by a
// fetch task for one subscription in one cycle. The two concrete kinds
// are CandleSnapshot and OptionChainSnapshot.
type Snapshot interface {
	// Timestamp returns the snapshot's canonical local time.
	Timestamp() time.Time
	// Subject returns the subscription the snapshot was fetched for.
	Subject() Subscription

	sealed()
}

// CandleSnapshot is one completed price bar, uniquely identified by
// (Symbol, TS).
type CandleSnapshot struct {
	Sub       Subscription
	Symbol    string
	Timeframe int       // minutes
	TS        time.Time // bar-open, canonical local
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

func (c CandleSnapshot) Timestamp() time.Time  { return c.TS }
func (c CandleSnapshot) Subject() Subscription { return c.Sub }
func (c CandleSnapshot) sealed()               {}

// OptionSide distinguishes calls from puts.
type OptionSide string

const (
	Call OptionSide = "call"
	Put  OptionSide = "put"
)

// OptionLeg is one strike on one side of an option chain.
type OptionLeg struct {
	Strike       float64
	Side         OptionSide
	Price        float64
	IV           float64
	Delta        float64
	Gamma        float64
	Theta        float64
	Vega         float64
	Rho          float64
	Volume       int64
	OpenInterest int64
	HasOI        bool // open interest is absent on some boards
}

// OptionChainSnapshot is one full-chain read at one instant.
type OptionChainSnapshot struct {
	Sub             Subscription
	TS              time.Time // canonical local
	Underlying      string
	UnderlyingPrice float64
	Calls           []OptionLeg // order as received; the builder sorts
	Puts            []OptionLeg
}

func (o OptionChainSnapshot) Timestamp() time.Time  { return o.TS }
func (o OptionChainSnapshot) Subject() Subscription { return o.Sub }
func (o OptionChainSnapshot) sealed()               {}

// -----------------------------------------------------------------------------
// Matrix rows
// -----------------------------------------------------------------------------

// Metric names one per-leg measurement extracted into a matrix row.
type Metric string

const (
	MetricIV           Metric = "iv"
	MetricDelta        Metric = "delta"
	MetricGamma        Metric = "gamma"
	MetricTheta        Metric = "theta"
	MetricVega         Metric = "vega"
	MetricPrice        Metric = "price"
	MetricVolume       Metric = "volume"
	MetricOpenInterest Metric = "open_interest"
)

// Metrics lists every metric a chain snapshot expands into, in the
// order rows are emitted.
func Metrics() []Metric {
	return []Metric{
		MetricIV, MetricDelta, MetricGamma, MetricTheta,
		MetricVega, MetricPrice, MetricVolume, MetricOpenInterest,
	}
}

// Cell is one banded column of a matrix row. Valid=false means the
// chain had no leg (or no value) for the band, which is distinct from
// a legitimate zero.
type Cell struct {
	Band  string
	Value float64
	Valid bool
}

// MatrixRow is one metric read across every band of one chain
// snapshot, uniquely identified by (TS, Underlying, Metric). Cells is
// fixed-width: 2(2N+1) entries in BandLabels order, absent strikes
// included as invalid cells.
type MatrixRow struct {
	TS         time.Time // canonical local
	Underlying string
	Metric     Metric
	Cells      []Cell
}

// BandLabels returns the full ordered column set for band width n:
// c_itm<n>..c_itm1, c_atm, c_otm1..c_otm<n>, then the mirrored p_*
// labels.
func BandLabels(n int) []string {
	labels := make([]string, 0, 2*(2*n+1))
	for _, side := range []string{"c", "p"} {
		for i := n; i >= 1; i-- {
			labels = append(labels, fmt.Sprintf("%s_itm%d", side, i))
		}
		labels = append(labels, side+"_atm")
		for i := 1; i <= n; i++ {
			labels = append(labels, fmt.Sprintf("%s_otm%d", side, i))
		}
	}
	return labels
}
