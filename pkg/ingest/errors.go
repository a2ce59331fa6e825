// pkg/ingest/errors.go
package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgconn"
)

// IsRetryableError reports whether a failed page write is worth repeating.
// Context cancellation is never retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	errorMsg := strings.ToLower(err.Error())
	return strings.Contains(errorMsg, "connection reset") ||
		strings.Contains(errorMsg, "connection refused") ||
		strings.Contains(errorMsg, "database is locked") ||
		strings.Contains(errorMsg, "sqlite_busy") ||
		strings.Contains(errorMsg, "try again")
}
