package persist

import "encoding/binary"

// Pebble keyspace for durable event records.
//
// Layout (byte-wise, lexicographically sortable):
// - evt/{seq_be8}
//
// Big-endian sequence encoding keeps iteration order equal to seq order,
// so AllEvents is a single range scan.

var evtPrefix = []byte("evt/")

func keyEvent(seq uint64) []byte {
	k := make([]byte, 0, len(evtPrefix)+8)
	k = append(k, evtPrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return append(k, b[:]...)
}

// keyEventRange returns the [low, high) bounds covering every event key.
func keyEventRange() (low, high []byte) {
	low = append([]byte(nil), evtPrefix...)
	high = append([]byte(nil), evtPrefix...)
	// '/' + 1 == '0': the first byte value above the prefix.
	high[len(high)-1]++
	return low, high
}
