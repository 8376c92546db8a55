// Package processor runs one batch of the translation queue.
//
// ProcessQueue takes the processing lease, pulls up to batch_size pending
// items in FIFO order, and handles them one at a time: mark processing, load
// the source post, call the translator, reconcile the result into the content
// store, and record completed or failed. A failing item never aborts the
// batch. When another run holds the lease the call returns immediately with
// Summary.LockHeld set and touches nothing.
//
// The lease is released on every exit path, including panics, which are
// recovered and logged.
package processor
