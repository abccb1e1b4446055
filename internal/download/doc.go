// Package download implements the bounded-concurrency download coordinator:
// it streams workshop item files to disk in fixed-size chunks, runs up to a
// configured number of transfers at once with FIFO queueing beyond that,
// reports progress and speed through typed events, and supports cooperative
// per-transfer cancellation.
package download
