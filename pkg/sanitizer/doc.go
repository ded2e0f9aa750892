// Package sanitizer normalizes caller supplied values before validation and storage.
//
// Every function is idempotent and never fails: input that cannot be normalized is
// returned trimmed or empty, and the validator rejects it afterwards.
package sanitizer
