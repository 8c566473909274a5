package db

import (
	"errors"

	"github.com/uptrace/bun/driver/pgdriver"
)

// SQLSTATE class codes surfaced by pgdriver.
const (
	codeSerializationFailure = "40001"
	codeUniqueViolation      = "23505"
)

// IsSerializationFailure reports whether err is a Postgres serialization
// conflict (a concurrent transaction won; the caller may retry).
func IsSerializationFailure(err error) bool {
	return pgErrorCode(err) == codeSerializationFailure
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	return pgErrorCode(err) == codeUniqueViolation
}

func pgErrorCode(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}
