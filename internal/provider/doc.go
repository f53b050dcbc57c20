// Package provider implements the REST client for the external quote
// provider (a KIS-style domestic equity/derivative board).
//
// The client:
//   - Performs single-attempt requests only. Retry policy belongs to
//     the scheduler, never to this layer.
//   - Decodes provider payloads into typed quotes (Candle, Chain);
//     wire formats do not leak past this package.
//   - Paces requests with a client-side rate limiter, since the
//     provider enforces a per-second request quota.
//
// Vendor authentication is abstracted behind TokenSource; token
// acquisition and refresh live outside the pipeline core.
package provider
