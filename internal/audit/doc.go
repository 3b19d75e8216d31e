// Package audit emits a compliance trail entry for every event accepted
// into the log. Entries are written synchronously from the append path,
// carry their own identity and wall-clock timestamp, and never fail the
// append that triggered them.
package audit
