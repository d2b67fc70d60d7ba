package db

import (
	"strings"

	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation matches duplicate-key failures from postgres and sqlite.
// A non-empty constraint narrows the match to that index.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.PG(err); ok {
		return pg.Code == pgUniqueViolation && (constraint == "" || pg.Constraint == constraint)
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraint == "" || strings.Contains(msg, constraint)
}
