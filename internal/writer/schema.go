package writer

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS equity_candles (
		symbol     TEXT             NOT NULL,
		ts         TIMESTAMPTZ      NOT NULL,
		timeframe  INTEGER          NOT NULL,
		open       DOUBLE PRECISION NOT NULL,
		high       DOUBLE PRECISION NOT NULL,
		low        DOUBLE PRECISION NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		volume     BIGINT           NOT NULL,
		PRIMARY KEY (symbol, ts)
	)`,
	`CREATE TABLE IF NOT EXISTS future_candles (
		symbol     TEXT             NOT NULL,
		ts         TIMESTAMPTZ      NOT NULL,
		timeframe  INTEGER          NOT NULL,
		open       DOUBLE PRECISION NOT NULL,
		high       DOUBLE PRECISION NOT NULL,
		low        DOUBLE PRECISION NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		volume     BIGINT           NOT NULL,
		PRIMARY KEY (symbol, ts)
	)`,
	`CREATE TABLE IF NOT EXISTS option_matrix (
		ts                TIMESTAMPTZ NOT NULL,
		underlying_symbol TEXT        NOT NULL,
		metric            TEXT        NOT NULL,
		cells             JSONB       NOT NULL,
		PRIMARY KEY (ts, underlying_symbol, metric)
	)`,
}

// EnsureSchema creates the output tables if they do not exist.
func (g *PostgresGateway) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := g.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
