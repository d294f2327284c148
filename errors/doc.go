// Package errors provides structured error types for the handle bridge.
//
// Errors carry a Phase (where in the pipeline), a Kind (what went wrong),
// and optional detail: the offending value, its Go type, the expected
// shape, and a field path. Equality via errors.Is matches on Phase and
// Kind so callers can test categories without string comparison.
package errors
