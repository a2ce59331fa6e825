// pkg/cascade/errors.go
package cascade

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
)

var (
	// ErrNoAnchors is returned when a cascade is requested without anchors
	ErrNoAnchors = errors.New("at least one anchor table is required")

	// ErrVerificationFailed is returned when anchor rows survive the deletes
	ErrVerificationFailed = errors.New("anchor rows remain after delete")
)

// Stage identifies where in a cascade a failure happened
type Stage int

const (
	StageConnect Stage = iota
	StageScratch
	StageIntrospection
	StageDelete
	StageVerify
	StageCommit
)

// String returns a string representation of the stage
func (s Stage) String() string {
	switch s {
	case StageConnect:
		return "connect"
	case StageScratch:
		return "scratch"
	case StageIntrospection:
		return "introspection"
	case StageDelete:
		return "delete"
	case StageVerify:
		return "verify"
	case StageCommit:
		return "commit"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// RollbackError reports a cascade that was rolled back. No row in any table
// was net-deleted when this error is returned.
type RollbackError struct {
	Stage Stage
	Table string // set for per-table failures
	Err   error
}

func (e *RollbackError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("cascade rolled back at %s (table %s): %v", e.Stage, e.Table, e.Err)
	}
	return fmt.Sprintf("cascade rolled back at %s: %v", e.Stage, e.Err)
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}

func rollbackErr(stage Stage, table string, err error) *RollbackError {
	return &RollbackError{Stage: stage, Table: table, Err: err}
}

// IsUndefinedTable reports whether err says a table does not exist
func IsUndefinedTable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}

	return strings.Contains(err.Error(), "no such table")
}
