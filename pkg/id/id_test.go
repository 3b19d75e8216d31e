package id

import (
	"testing"
	"time"
)

func TestUniqueAcrossCalls(t *testing.T) {
	g := NewGenerator()
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		s := g.Next().String()
		if seen[s] {
			t.Fatalf("duplicate id %s", s)
		}
		seen[s] = true
	}
}

func TestStringIsHex(t *testing.T) {
	s := NewGenerator().Next().String()
	if len(s) != 32 {
		t.Fatalf("want 32 hex digits, got %d", len(s))
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Fatalf("non-hex digit %q in %s", c, s)
		}
	}
}

func TestClockRegressionGuard(t *testing.T) {
	g := NewGenerator()
	now := int64(1000)
	NowMs = func() int64 { return now }
	defer func() { NowMs = func() int64 { return time.Now().UnixMilli() } }()

	a := g.Next()
	now = 900 // clock went backwards
	b := g.Next()
	if b.Ms() < a.Ms() {
		t.Fatalf("timestamp regressed: %d after %d", b.Ms(), a.Ms())
	}
}

func TestMsRoundTrip(t *testing.T) {
	NowMs = func() int64 { return 123456789 }
	defer func() { NowMs = func() int64 { return time.Now().UnixMilli() } }()
	if got := NewGenerator().Next().Ms(); got != 123456789 {
		t.Fatalf("want embedded ms 123456789, got %d", got)
	}
}
