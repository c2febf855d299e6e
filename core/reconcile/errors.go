package reconcile

import (
	"errors"
	"fmt"
)

// ErrDeleteNotConfirmed is returned for a delete entry executed without the
// operator's explicit confirmation. No remote call is made.
var ErrDeleteNotConfirmed = errors.New("delete refused: destructive action not confirmed")

// ErrAlreadyRecorded is returned when an entry reaches a terminal state twice.
var ErrAlreadyRecorded = errors.New("entry already has a terminal state")

// EnumerationError is a failed listing. It is fatal for the run: a partial
// listing must not drive a sync.
type EnumerationError struct {
	Prefix string
	Err    error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("failed to enumerate %q: %v", e.Prefix, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// ProbeError is an existence check that failed with anything other than
// not-found. It fails the entry, not the run.
type ProbeError struct {
	Key string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("failed to probe %q: %v", e.Key, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// TransferError is a failed copy, upload, header update or delete.
type TransferError struct {
	Key    string
	Action Action
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Action, e.Key, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
