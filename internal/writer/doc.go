// Package writer persists pipeline output to PostgreSQL.
//
// Tables:
//   - equity_candles, future_candles: keyed (symbol, ts)
//   - option_matrix: keyed (ts, underlying_symbol, metric), banded
//     cells stored as JSONB
//
// All writes are idempotent upserts (INSERT ... ON CONFLICT DO
// UPDATE), so replaying a batch converges on the same rows.
package writer
