package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"sstload/internal/loader/models"
	"sstload/pkg/platform/sentinel"
)

// SQLSTATE classes that decide retry behavior. Serialization failures and
// connection problems are worth retrying; integrity violations are not.
const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
	codeSerializationFail  = "40001"
	codeDeadlockDetected   = "40P01"
	codeQueryCanceled      = "57014"
	codeAdminShutdown      = "57P01"
	codeCrashShutdown      = "57P02"
	codeCannotConnectNow   = "57P03"
)

// classify wraps a database error according to the loader's taxonomy:
// constraint violations become sentinel.ErrConflict (the commit paths add
// temporal context), known-retriable conditions become TransientStoreError,
// and everything else passes through wrapped, which the retry classifier
// treats as fatal.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation, codeExclusionViolation:
			return fmt.Errorf("%s: %s: %w", op, pqErr.Message, sentinel.ErrConflict)
		case codeSerializationFail, codeDeadlockDetected, codeQueryCanceled,
			codeAdminShutdown, codeCrashShutdown, codeCannotConnectNow:
			return &models.TransientStoreError{Op: op, Err: err}
		}
		switch pqErr.Code.Class() {
		case "08": // connection exceptions
			return &models.TransientStoreError{Op: op, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) {
		return &models.TransientStoreError{Op: op, Err: err}
	}

	return fmt.Errorf("%s: %w", op, err)
}
