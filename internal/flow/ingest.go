package flow

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"codemash/internal/ports"
	"codemash/internal/types"
)

// ProcessSubmission runs one outcome through the pipeline: resolve both
// participants, compute new ratings with K-factor k, persist exactly-once.
//
// A duplicate submission id is reconciled against the stored row: the same
// result is an idempotent no-op (its rating delta was applied by the original
// write), a different result fails with types.ErrConflictingResubmission and
// the stored outcome stays authoritative. The insert's uniqueness on the
// submission id is the only concurrency control: two processes racing on the
// same id both attempt the insert, exactly one commits, the other lands here
// on the reconciliation path. No lock is taken anywhere.
func ProcessSubmission(ctx context.Context, store ports.GameStore, sub types.Submission, k float64) error {
	white, black, err := store.FindParticipantsByIDs(ctx, sub.WhiteID, sub.BlackID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// The pairing was issued before a catalog refresh removed one side.
			return types.Err(types.ErrDeletedFromStore, err, "submission %s references a missing participant", sub.ID)
		}
		return err
	}

	match, err := types.NewMatch(white, black, sub.Result)
	if err != nil {
		return err
	}
	newWhite, newBlack := Rate(match, k)

	err = store.SaveSubmissionAndRatings(ctx, sub, newWhite, newBlack)
	if err == nil {
		return nil
	}
	if !errors.Is(err, types.ErrDuplicateSubmission) {
		return err
	}

	stored, findErr := store.FindSubmissionByID(ctx, sub.ID)
	if findErr != nil {
		return findErr
	}
	if stored.Result != sub.Result {
		return types.Err(types.ErrConflictingResubmission, nil,
			"submission %s was already recorded with a different result", sub.ID)
	}
	log.WithField("submission_id", sub.ID).Debug("duplicate submission replayed, ratings unchanged")
	return nil
}
