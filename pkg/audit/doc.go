// Package audit implements the asynchronous audit-logging pipeline: a bounded
// non-blocking queue fed by request handlers, a single background writer that
// groups entries into batches and flushes them to durable storage on a
// size-or-time trigger, and a Pipeline controller owning their lifecycle.
//
// The contract is best-effort, at-most-once delivery with bounded loss: a full
// queue drops the newest entry, a failed durable write discards its batch, and
// neither ever blocks or fails the request path. Shutdown drains everything
// still queued before returning.
package audit
