package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL         = "https://openapi.koreainvestment.com:9443"
	DefaultProviderTimeout = 10 * time.Second
	DefaultRatePerSec      = 2.0
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultOffset          = 2 * time.Second
	DefaultMaxRetries      = 3
	DefaultBackoffBase     = 1 * time.Second
	DefaultBackoffCap      = 8 * time.Second
	DefaultGraceWindow     = 10 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultBufferSize      = 64
	DefaultBatchSize       = 200
	DefaultFlushInterval   = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultBandWidth       = 10
	DefaultTieBreak        = "lower"
	DefaultZone            = "Asia/Seoul"
)

func (c *FeedConfig) applyDefaults() {
	// Provider defaults
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = DefaultBaseURL
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}
	if c.Provider.RatePerSec == 0 {
		c.Provider.RatePerSec = DefaultRatePerSec
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Scheduler defaults
	if c.Scheduler.Offset == 0 {
		c.Scheduler.Offset = DefaultOffset
	}
	if c.Scheduler.MaxRetries == 0 {
		c.Scheduler.MaxRetries = DefaultMaxRetries
	}
	if c.Scheduler.BackoffBase == 0 {
		c.Scheduler.BackoffBase = DefaultBackoffBase
	}
	if c.Scheduler.BackoffCap == 0 {
		c.Scheduler.BackoffCap = DefaultBackoffCap
	}
	if c.Scheduler.GraceWindow == 0 {
		c.Scheduler.GraceWindow = DefaultGraceWindow
	}
	if c.Scheduler.FetchTimeout == 0 {
		c.Scheduler.FetchTimeout = DefaultFetchTimeout
	}
	if c.Scheduler.BufferSize == 0 {
		c.Scheduler.BufferSize = DefaultBufferSize
	}

	// Aggregator defaults
	if c.Aggregator.BatchSize == 0 {
		c.Aggregator.BatchSize = DefaultBatchSize
	}
	if c.Aggregator.FlushInterval == 0 {
		c.Aggregator.FlushInterval = DefaultFlushInterval
	}
	if c.Aggregator.WriteTimeout == 0 {
		c.Aggregator.WriteTimeout = DefaultWriteTimeout
	}

	// Matrix defaults
	if c.Matrix.BandWidth == 0 {
		c.Matrix.BandWidth = DefaultBandWidth
	}
	if c.Matrix.TieBreak == "" {
		c.Matrix.TieBreak = DefaultTieBreak
	}

	// Time defaults
	if c.Time.Zone == "" {
		c.Time.Zone = DefaultZone
	}

	// Subscription defaults
	for i := range c.Subscriptions {
		s := &c.Subscriptions[i]
		if s.TimeframeMinutes == 0 && s.Kind != "option_chain" {
			s.TimeframeMinutes = 1
		}
	}
}
