// Package scheduler aligns all fetch tasks to a common minute-boundary
// trigger and owns the only source of concurrency in the pipeline.
//
// Each cycle the scheduler:
//   - Arms at floor_to_minute(now) + 1 minute + configured offset.
//   - Launches one fetch task per subscription, all at the trigger
//     instant, so every instrument is read as of the same nominal time.
//   - Applies the bounded retry/backoff policy per task for transient
//     failures; retries never cross into the next cycle.
//   - Forwards successful snapshots, in completion order, onto a single
//     channel consumed by the aggregation stage, and failure records to
//     the report sink.
//
// States: Idle -> Armed -> Running -> Draining -> Idle, with Stopped
// reached only through an explicit shutdown request.
package scheduler
