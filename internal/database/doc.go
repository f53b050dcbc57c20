// Package database provides the PostgreSQL connection pool the feed
// writes candles and option matrix rows into.
package database
