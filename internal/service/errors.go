package service

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error classes the transport layer maps onto HTTP statuses. Concrete errors
// wrap one of these sentinels, so callers test with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

func validationErrorf(format string, args ...interface{}) error {
	return errors.Wrap(ErrValidation, fmt.Sprintf(format, args...))
}

func conflictErrorf(format string, args ...interface{}) error {
	return errors.Wrap(ErrConflict, fmt.Sprintf(format, args...))
}

func notFoundErrorf(format string, args ...interface{}) error {
	return errors.Wrap(ErrNotFound, fmt.Sprintf(format, args...))
}

func forbiddenErrorf(format string, args ...interface{}) error {
	return errors.Wrap(ErrForbidden, fmt.Sprintf(format, args...))
}

// isUniqueViolation detects unique-constraint failures from both postgres
// (23505) and the sqlite driver used in tests. The constraint is the final
// arbiter for concurrent inserts; existence checks are only a fast path.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
