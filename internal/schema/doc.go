// Package schema holds the versioned payload contracts for ledger events.
//
// Each registered (type, version) pair maps to a JSON Schema document
// embedded in the binary and compiled at construction time. Validation
// failures surface as *ValidationError with one issue string per violated
// constraint. Types without a registered contract are accepted as
// pass-through records; the event log logs a warning for those rather
// than rejecting them, so the store never hard-couples to an exhaustive
// type catalogue.
//
// Older payload shapes are upgraded to the latest version by pure
// migration functions, applied when ingesting legacy events so in-memory
// consumers only ever see one canonical shape per type.
package schema
