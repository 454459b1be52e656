package utils

import "strings"

// IsUniqueViolation reports whether err is a unique-constraint failure from
// the database. The pre-insert existence checks catch most duplicates, but
// two requests can race past them; the index violation is mapped to the same
// conflict response. Matches both the postgres and sqlite wording.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "UNIQUE constraint")
}
