// Package serverrun hosts the long-running ledger process: it opens the
// runtime, exposes Prometheus metrics and a health endpoint, and blocks
// until the context is cancelled.
package serverrun
