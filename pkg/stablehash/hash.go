package stablehash

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a 16-hex-digit fingerprint of v. Map/struct key order does
// not affect the result; array order does. nil hashes successfully.
//
// v is first normalized through JSON so that structs, maps and typed
// slices all reduce to the same generic shape before canonicalization.
func Hash(v any) string {
	norm, err := normalize(v)
	if err != nil {
		// Unserializable values degrade to a hash of the error text so the
		// caller still gets a deterministic fingerprint.
		norm = "!" + err.Error()
	}
	d := xxhash.New()
	writeCanonical(d, norm)
	return strconvHex(d.Sum64())
}

// normalize reduces v to the generic JSON shape: map[string]any, []any,
// string, float64, bool, nil.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// writeCanonical streams a canonical rendering of v into the digest:
// object keys sorted, array order preserved, each token framed by a type
// byte so {"1":null} and ["1",null] cannot collide.
func writeCanonical(d *xxhash.Digest, v any) {
	switch t := v.(type) {
	case nil:
		_, _ = d.WriteString("z")
	case bool:
		if t {
			_, _ = d.WriteString("b1")
		} else {
			_, _ = d.WriteString("b0")
		}
	case float64:
		_, _ = d.WriteString("n")
		_, _ = d.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case string:
		_, _ = d.WriteString("s")
		_, _ = d.WriteString(strconv.Itoa(len(t)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(t)
	case []any:
		_, _ = d.WriteString("[")
		for _, e := range t {
			writeCanonical(d, e)
		}
		_, _ = d.WriteString("]")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = d.WriteString("{")
		for _, k := range keys {
			writeCanonical(d, k)
			writeCanonical(d, t[k])
		}
		_, _ = d.WriteString("}")
	default:
		// normalize only yields the cases above; keep a marker so an
		// unexpected type still contributes to the digest.
		_, _ = d.WriteString("?")
	}
}

func strconvHex(v uint64) string {
	const hexdigits = "0123456789abcdef"
	var out [16]byte
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[v&0x0f]
		v >>= 4
	}
	return string(out[:])
}
