// Package report carries structured failure records out of the
// pipeline to operational tooling. The pipeline only produces records;
// consumption (alerting, dashboards) lives elsewhere.
package report

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Class mirrors the fetch error taxonomy for operational filtering.
type Class string

const (
	ClassTransient Class = "transient"
	ClassPermanent Class = "permanent"
	ClassExhausted Class = "retry_exhausted"
)

// Record describes one subscription's failed cycle. Exactly one record
// is emitted per (subscription, cycle) that produced no snapshot.
type Record struct {
	ID           uuid.UUID
	Subscription string
	Cycle        time.Time // canonical local trigger time
	Class        Class
	Attempts     int
	Err          string
}

// NewRecord builds a Record with a fresh ID.
func NewRecord(subscription string, cycle time.Time, class Class, attempts int, err error) Record {
	r := Record{
		ID:           uuid.New(),
		Subscription: subscription,
		Cycle:        cycle,
		Class:        class,
		Attempts:     attempts,
	}
	if err != nil {
		r.Err = err.Error()
	}
	return r
}

// Sink receives failure records.
type Sink interface {
	Report(Record)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(Record)

func (f SinkFunc) Report(r Record) { f(r) }

// LogSink writes records to a slog.Logger. It is the default sink.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Report(r Record) {
	s.logger.Warn("fetch cycle failed",
		"record_id", r.ID,
		"subscription", r.Subscription,
		"cycle", r.Cycle,
		"class", r.Class,
		"attempts", r.Attempts,
		"err", r.Err,
	)
}

// Collector retains records in memory. Test helper.
type Collector struct {
	mu      sync.Mutex
	records []Record
}

func (c *Collector) Report(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
}

// Records returns a copy of everything reported so far.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}
