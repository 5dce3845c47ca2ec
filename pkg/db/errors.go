package db

import "strings"

// IsUniqueViolation reports whether err is a unique constraint failure.
// With a constraint name it matches that specific index; otherwise it
// recognizes the generic Postgres and SQLite phrasings, the latter
// because the test suites run on SQLite.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
