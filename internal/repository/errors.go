package repository

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrDeviceNotFound      = errors.New("device not found")
	ErrDuplicateToken      = errors.New("device token already registered")
	ErrReadingNotFound     = errors.New("reading not found")
	ErrAlertNotFound       = errors.New("alert not found")
	ErrThresholdsNotFound  = errors.New("threshold set not found")
	ErrBillingRateNotFound = errors.New("billing rate not found")
)

type scanner interface {
	Scan(dest ...interface{}) error
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
