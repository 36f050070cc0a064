package ports

import (
	"context"

	"codemash/internal/types"
)

// GameStore is the storage collaborator of the ingestion pipeline.
// Implementations MUST return types.ErrNotFound (possibly wrapped) when a
// looked-up row does not exist, and types.ErrDuplicateSubmission when a
// submission id already has a persisted row.
type GameStore interface {
	// FindParticipantsByIDs resolves both sides of a submission in one call.
	// Either id missing fails the whole lookup with types.ErrNotFound.
	FindParticipantsByIDs(ctx context.Context, whiteID, blackID int64) (white, black types.Participant, err error)

	// FindSubmissionByID returns the persisted submission for an idempotency key.
	FindSubmissionByID(ctx context.Context, submissionID string) (types.Submission, error)

	// SaveSubmissionAndRatings inserts the submission row and writes both new
	// ratings in a single serializable transaction. Submission rows are
	// append-only: a second insert under the same id MUST fail with
	// types.ErrDuplicateSubmission and leave the stored row untouched.
	SaveSubmissionAndRatings(ctx context.Context, sub types.Submission, white, black types.Participant) error
}
