package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert or update violates a storage
// uniqueness constraint. It is the race-safe backstop behind the optimistic
// pre-checks in the service layer; services translate it into the same
// domain-level conflict the pre-check would have produced.
var ErrDuplicate = errors.New("duplicate row")

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
