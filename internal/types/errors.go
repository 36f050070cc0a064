package types

import (
	"errors"
	"fmt"
)

var (
	// Validation errors: rejected at construction, never retried.
	ErrInvalidScore  = errors.New("invalid score")
	ErrUnknownResult = errors.New("result is unknown")

	// Domain invariant errors: a pairing/upstream bug, fatal to the one operation.
	ErrSelfMatch          = errors.New("match with yourself")
	ErrUnknownMatchResult = errors.New("match result is unknown")

	// Storage contract errors.
	ErrNotFound            = errors.New("not found")
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// Coordinator outcomes surfaced to the consumer loop.
	ErrDeletedFromStore        = errors.New("deleted from store")
	ErrConflictingResubmission = errors.New("conflicting resubmission")

	ErrInvalidConfig = errors.New("invalid config")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
