// Package stablehash fingerprints structured values independently of map
// key order. Two structurally equal values always hash to the same string,
// across processes and restarts, which makes the output safe to persist as
// an idempotency fingerprint.
package stablehash
