// Package model defines shared data types used across the market feed.
//
// Conventions:
//   - Timestamps: canonical local time (see internal/timeutil), the
//     wall clock of the deployment zone with no offset attached.
//   - Prices and greeks: float64 as reported by the provider.
//   - Snapshots are immutable once produced by a fetch; ownership moves
//     to the aggregation stage on channel delivery.
package model
