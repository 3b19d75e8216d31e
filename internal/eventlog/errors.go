package eventlog

import (
	"errors"
	"fmt"
)

// IdempotencyConflictCode is the stable machine-readable code carried by
// IdempotencyConflictError.
const IdempotencyConflictCode = "IDEMPOTENCY_CONFLICT"

// IdempotencyConflictError reports a retried key whose parameters hash
// differently from the original operation. This signals a key-derivation
// bug upstream and is never resolved automatically.
type IdempotencyConflictError struct {
	Code     string
	Key      string
	GotHash  string
	WantHash string // hash recorded by the original operation
}

func (e *IdempotencyConflictError) Error() string {
	return fmt.Sprintf("eventlog: idempotency conflict on key %q: params hash %s does not match recorded %s", e.Key, e.GotHash, e.WantHash)
}

// ErrKeyRequired is returned by Append in strict mode when no idempotency
// key was supplied.
var ErrKeyRequired = errors.New("eventlog: idempotency key required")

// ErrNotHydrated is returned by Append when the store was constructed with
// a pending hydration that has not completed yet.
var ErrNotHydrated = errors.New("eventlog: store not hydrated")
