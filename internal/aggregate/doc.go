// Package aggregate is the single consumer of the scheduler's snapshot
// stream. It expands option chains into matrix rows, accumulates
// batches, and hands them to the writer gateway on a size or interval
// trigger. Batches that fail to write are logged and dropped; the
// stream is never blocked on a bad batch.
package aggregate
