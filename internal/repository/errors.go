package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the postgres error code raised when a unique constraint
// rejects an insert. The repositories translate it into domain errors so the
// services never read-then-write for correctness.
const uniqueViolation = pq.ErrorCode("23505")

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally restricted to a named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
