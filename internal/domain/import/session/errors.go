package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoAccounts        = errors.New("ledger has no accounts")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrUnknownHeader     = errors.New("mapping references a header that is not in the file")
	ErrSessionClosed     = errors.New("import session is closed")
	ErrNothingToCommit   = errors.New("no accepted rows to commit")
	ErrMappingIncomplete = errors.New("mapping is incomplete")
)

// MappingIncompleteError blocks MAPPING -> PREVIEW until date and amount are mapped.
type MappingIncompleteError struct {
	Missing []string
}

func (e *MappingIncompleteError) Error() string {
	return fmt.Sprintf("%s: %s not mapped", ErrMappingIncomplete, strings.Join(e.Missing, ", "))
}

func (e *MappingIncompleteError) Is(target error) bool {
	return target == ErrMappingIncomplete
}

// CommitError wraps a ledger failure. The session stays in PREVIEW with every
// candidate intact so the commit can be retried.
type CommitError struct {
	AccountID string
	Rows      int
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit of %d rows to %s failed: %v", e.Rows, e.AccountID, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// TransitionError is returned for an operation the current stage does not allow.
type TransitionError struct {
	Op    string
	Stage Stage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s is not allowed in %s", e.Op, e.Stage)
}
