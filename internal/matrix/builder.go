package matrix

import (
	"math"
	"sort"
	"sync"

	"github.com/dykwon/marketfeed/internal/model"
)

// DefaultBandWidth is the number of ITM and OTM bands per side when
// none is configured.
const DefaultBandWidth = 10

// TieBreak selects the at-the-money strike when two strikes are
// equidistant from the underlying price.
type TieBreak int

const (
	// TieBreakLower picks the lower of two equidistant strikes.
	TieBreakLower TieBreak = iota
	// TieBreakHigher picks the higher one.
	TieBreakHigher
)

// Builder converts chain snapshots into matrix rows and caches the
// most recent rows per underlying. Safe for concurrent use.
type Builder struct {
	n        int
	tieBreak TieBreak
	metrics  []model.Metric

	mu     sync.RWMutex
	latest map[string][]model.MatrixRow
}

// Option configures a Builder.
type Option func(*Builder)

// WithTieBreak overrides the equidistant-strike rule.
func WithTieBreak(tb TieBreak) Option {
	return func(b *Builder) { b.tieBreak = tb }
}

// NewBuilder creates a Builder emitting n ITM and n OTM bands per
// side. Non-positive n falls back to DefaultBandWidth.
func NewBuilder(n int, opts ...Option) *Builder {
	if n <= 0 {
		n = DefaultBandWidth
	}
	b := &Builder{
		n:        n,
		tieBreak: TieBreakLower,
		metrics:  model.Metrics(),
		latest:   make(map[string][]model.MatrixRow),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BandWidth returns the configured n.
func (b *Builder) BandWidth() int { return b.n }

// Build expands one chain snapshot into one row per metric. Every row
// carries the full 2(2n+1) cell set in model.BandLabels order; bands
// with no strike behind them come back as invalid cells.
func (b *Builder) Build(chain model.OptionChainSnapshot) []model.MatrixRow {
	labels := model.BandLabels(b.n)

	slots := make([]*model.OptionLeg, 0, len(labels))
	slots = append(slots, bandSlots(chain.Calls, chain.UnderlyingPrice, b.n, b.tieBreak, model.Call)...)
	slots = append(slots, bandSlots(chain.Puts, chain.UnderlyingPrice, b.n, b.tieBreak, model.Put)...)

	rows := make([]model.MatrixRow, 0, len(b.metrics))
	for _, m := range b.metrics {
		cells := make([]model.Cell, len(labels))
		for i, leg := range slots {
			cell := model.Cell{Band: labels[i]}
			if leg != nil {
				if v, ok := metricValue(*leg, m); ok {
					cell.Value = v
					cell.Valid = true
				}
			}
			cells[i] = cell
		}
		rows = append(rows, model.MatrixRow{
			TS:         chain.TS,
			Underlying: chain.Underlying,
			Metric:     m,
			Cells:      cells,
		})
	}

	b.mu.Lock()
	b.latest[chain.Underlying] = rows
	b.mu.Unlock()

	return rows
}

// Latest returns the rows from the most recent Build for the
// underlying, or nil if none has been built yet.
func (b *Builder) Latest(underlying string) []model.MatrixRow {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rows := b.latest[underlying]
	if rows == nil {
		return nil
	}
	out := make([]model.MatrixRow, len(rows))
	copy(out, rows)
	return out
}

// bandSlots places one side's legs into 2n+1 positions ordered
// itm_n..itm_1, atm, otm_1..otm_n. Calls are in the money below the
// at-the-money strike; puts mirror. Positions with no strike stay nil.
func bandSlots(legs []model.OptionLeg, ref float64, n int, tb TieBreak, side model.OptionSide) []*model.OptionLeg {
	slots := make([]*model.OptionLeg, 2*n+1)
	if len(legs) == 0 {
		return slots
	}

	sorted := make([]model.OptionLeg, len(legs))
	copy(sorted, legs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Strike < sorted[j].Strike })

	// Nearest strike wins; on an exact tie the ascending scan keeps
	// the lower strike unless configured otherwise.
	atm := 0
	for i := 1; i < len(sorted); i++ {
		di := math.Abs(sorted[i].Strike - ref)
		da := math.Abs(sorted[atm].Strike - ref)
		if di < da || (di == da && tb == TieBreakHigher) {
			atm = i
		}
	}

	slots[n] = &sorted[atm]
	for k := 1; k <= n; k++ {
		itm, otm := atm-k, atm+k
		if side == model.Put {
			itm, otm = atm+k, atm-k
		}
		if itm >= 0 && itm < len(sorted) {
			slots[n-k] = &sorted[itm]
		}
		if otm >= 0 && otm < len(sorted) {
			slots[n+k] = &sorted[otm]
		}
	}
	return slots
}

// metricValue reads one metric off a leg. Open interest is only valid
// when the board actually reported it.
func metricValue(leg model.OptionLeg, m model.Metric) (float64, bool) {
	switch m {
	case model.MetricIV:
		return leg.IV, true
	case model.MetricDelta:
		return leg.Delta, true
	case model.MetricGamma:
		return leg.Gamma, true
	case model.MetricTheta:
		return leg.Theta, true
	case model.MetricVega:
		return leg.Vega, true
	case model.MetricPrice:
		return leg.Price, true
	case model.MetricVolume:
		return float64(leg.Volume), true
	case model.MetricOpenInterest:
		return float64(leg.OpenInterest), leg.HasOI
	}
	return 0, false
}
