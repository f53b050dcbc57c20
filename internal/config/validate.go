package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Provider.AppKey == "" {
		return errors.New("provider.app_key is required")
	}
	if c.Provider.AppSecret == "" {
		return errors.New("provider.app_secret is required")
	}
	if c.Provider.RatePerSec <= 0 {
		return errors.New("provider.rate_per_sec must be > 0")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Scheduler.MaxRetries < 0 {
		return errors.New("scheduler.max_retries must be >= 0")
	}
	if c.Scheduler.BackoffBase <= 0 {
		return errors.New("scheduler.backoff_base must be > 0")
	}
	if c.Scheduler.BackoffCap < c.Scheduler.BackoffBase {
		return errors.New("scheduler.backoff_cap cannot be below backoff_base")
	}
	if c.Scheduler.Offset < 0 || c.Scheduler.Offset >= time.Minute {
		return errors.New("scheduler.offset must be within [0, 1m)")
	}
	if c.Scheduler.BufferSize < 1 {
		return errors.New("scheduler.buffer_size must be >= 1")
	}

	if c.Aggregator.BatchSize < 1 {
		return errors.New("aggregator.batch_size must be >= 1")
	}

	if c.Matrix.BandWidth < 1 {
		return errors.New("matrix.band_width must be >= 1")
	}
	if c.Matrix.TieBreak != "lower" && c.Matrix.TieBreak != "higher" {
		return fmt.Errorf("matrix.tie_break must be \"lower\" or \"higher\", got %q", c.Matrix.TieBreak)
	}

	if len(c.Subscriptions) == 0 {
		return errors.New("at least one subscription is required")
	}
	for i, s := range c.Subscriptions {
		if err := s.validate(); err != nil {
			return fmt.Errorf("subscriptions[%d]: %w", i, err)
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (s SubscriptionConfig) validate() error {
	if s.Symbol == "" {
		return errors.New("symbol is required")
	}
	switch s.Kind {
	case "equity", "future":
		if s.TimeframeMinutes < 1 {
			return errors.New("timeframe_minutes must be >= 1")
		}
	case "option_chain":
		if s.Expiry == "" {
			return errors.New("expiry is required for option_chain")
		}
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	return nil
}
