// Package id provides 128-bit event identifiers.
//
// # Format
//
// An ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes random].
// The timestamp prefix makes byte-wise comparison roughly chronological,
// while the random suffix makes collisions across processes and restarts
// vanishingly unlikely without any coordination.
//
// # Clock regression
//
// The Generator never emits a timestamp earlier than one it has already
// used: if the system clock regresses, it pins to the last seen
// millisecond until the clock catches up.
//
// Usage
//
//	g := id.NewGenerator()
//	newID := g.Next()
//	s := newID.String() // 32 hex digits
package id
