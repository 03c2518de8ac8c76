// Package id mints and inspects run identifiers.
//
// Run IDs are ULIDs: 26-character strings that sort lexicographically by
// creation time, so ordering journal rows by run ID walks them
// chronologically without a second column.
package id

import "github.com/oklog/ulid/v2"

// shortLen is how many leading characters Short keeps.
const shortLen = 8

// New returns a fresh run identifier.
//
// IDs minted within the same millisecond stay strictly increasing; the
// generator is safe for concurrent use.
func New() string {
	return ulid.Make().String()
}

// Short returns a display-sized prefix of a run ID. Reports and org
// headings use it where the full 26 characters would drown the line.
func Short(id string) string {
	if len(id) > shortLen {
		return id[:shortLen]
	}
	return id
}

// Valid reports whether s parses as a run identifier. Commands that
// take a run ID argument check it before querying the journal.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
