package utils

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorInsufficientStock is returned when a stock pool holds less than the
// quantity an order line ingredient needs. It never implies a mutation happened.
var ErrorInsufficientStock = errors.New("insufficient stock")

// ErrorConcurrencyConflict is surfaced after the bounded optimistic-lock retry
// is exhausted. Callers may retry the whole operation later.
var ErrorConcurrencyConflict = errors.New("concurrent stock modification")

// ErrorValidation marks input validation failures. Validate paths wrap it
// with detail so callers can branch with errors.Is.
var ErrorValidation = errors.New("validation failed")

// IsDuplicateKeyErr reports whether err is a MySQL unique-index violation.
// The pre-insert uniqueness checks are racy; the unique index is the backstop.
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
