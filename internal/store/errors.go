package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
)

// sqliteConstraintUnique is the SQLITE_CONSTRAINT_UNIQUE extended
// result code.
const sqliteConstraintUnique = 2067

// IsUniqueViolation reports whether err is a uniqueness-constraint
// violation. Detection is by structured error code first, then by
// message substring, because not every driver or store surfaces a code
// for these failures.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var serr *sqlite.Error
	if errors.As(err, &serr) && serr.Code() == sqliteConstraintUnique {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
