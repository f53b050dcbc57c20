package config

import "time"

// FeedConfig is the root configuration for a feed instance.
type FeedConfig struct {
	Instance      InstanceConfig       `yaml:"instance"`
	Provider      ProviderConfig       `yaml:"provider"`
	Database      DBConfig             `yaml:"database"`
	Scheduler     SchedulerConfig      `yaml:"scheduler"`
	Aggregator    AggregatorConfig     `yaml:"aggregator"`
	Matrix        MatrixConfig         `yaml:"matrix"`
	Time          TimeConfig           `yaml:"time"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

// InstanceConfig identifies this feed.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ProviderConfig holds quote provider API settings.
type ProviderConfig struct {
	BaseURL     string        `yaml:"base_url"`
	AppKey      string        `yaml:"app_key"`
	AppSecret   string        `yaml:"app_secret"`
	AccessToken string        `yaml:"access_token"`
	TRIDs       TRIDConfig    `yaml:"tr_ids"`
	Timeout     time.Duration `yaml:"timeout"`
	RatePerSec  float64       `yaml:"rate_per_sec"`
}

// TRIDConfig overrides the per-endpoint transaction IDs. Empty fields
// keep the production defaults.
type TRIDConfig struct {
	EquityMinute string `yaml:"equity_minute"`
	FutureMinute string `yaml:"future_minute"`
	OptionChain  string `yaml:"option_chain"`
}

// DBConfig holds the Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SchedulerConfig holds fetch cycle settings.
type SchedulerConfig struct {
	Offset       time.Duration `yaml:"offset"`
	MaxRetries   int           `yaml:"max_retries"`
	BackoffBase  time.Duration `yaml:"backoff_base"`
	BackoffCap   time.Duration `yaml:"backoff_cap"`
	GraceWindow  time.Duration `yaml:"grace_window"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	BufferSize   int           `yaml:"buffer_size"`
}

// AggregatorConfig holds batching settings for the write side.
type AggregatorConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

// MatrixConfig holds option matrix banding settings.
type MatrixConfig struct {
	BandWidth int    `yaml:"band_width"`
	TieBreak  string `yaml:"tie_break"` // "lower" or "higher"
}

// TimeConfig holds the canonical wall-clock zone.
type TimeConfig struct {
	Zone string `yaml:"zone"`
}

// SubscriptionConfig declares one polled instrument.
type SubscriptionConfig struct {
	Kind             string `yaml:"kind"` // equity | future | option_chain
	Symbol           string `yaml:"symbol"`
	TimeframeMinutes int    `yaml:"timeframe_minutes"`
	Expiry           string `yaml:"expiry"`
}
