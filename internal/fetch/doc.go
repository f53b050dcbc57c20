// Package fetch implements the single-attempt fetch task: one
// request/response cycle against the quote provider for one
// subscription, yielding a typed snapshot or a classified error.
//
// Fetchers never retry and never sleep. The scheduler owns the retry
// policy, so a fetcher stays testable with a single call.
package fetch
