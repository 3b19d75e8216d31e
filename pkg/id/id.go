package id

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// ID is a 128-bit, roughly time-ordered identifier encoded as 16 bytes
// big-endian: [8 bytes ms_timestamp][8 bytes random].
type ID [16]byte

// Bytes returns the raw 16-byte representation.
func (i ID) Bytes() []byte { b := make([]byte, 16); copy(b, i[:]); return b }

// String returns a 32-digit hex string.
func (i ID) String() string { return fmtHex(i[:]) }

// Ms returns the millisecond timestamp embedded in the ID.
func (i ID) Ms() int64 { return int64(binary.BigEndian.Uint64(i[0:8])) }

// Compare returns -1, 0, 1 based on lexical comparison.
func (i ID) Compare(other ID) int {
	for idx := 0; idx < 16; idx++ {
		if i[idx] < other[idx] {
			return -1
		}
		if i[idx] > other[idx] {
			return 1
		}
	}
	return 0
}

// Generator produces time+random composite IDs.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID. If the clock goes backwards, the last seen
// millisecond is reused so emitted timestamps never regress.
func (g *Generator) Next() ID {
	g.mu.Lock()
	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	g.lastMs = ms
	g.mu.Unlock()

	var id ID
	binary.BigEndian.PutUint64(id[0:8], uint64(ms))
	if _, err := rand.Read(id[8:16]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived suffix rather than emitting zeros.
		binary.BigEndian.PutUint64(id[8:16], uint64(time.Now().UnixNano()))
	}
	return id
}

// fmtHex is a small, allocation-lean hex encoder for fixed-size IDs.
func fmtHex(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexdigits[v>>4]
		out[i*2+1] = hexdigits[v&0x0f]
	}
	return string(out)
}
