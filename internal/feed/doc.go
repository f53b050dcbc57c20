// Package feed assembles and runs the polling pipeline: a fetcher
// registry over the provider client, the minute-cycle scheduler, and
// the aggregation stage feeding the writer gateway. The Builder is the
// only way subscriptions enter the pipeline; the set freezes when the
// feed is constructed.
package feed
