package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"codemash/internal/flow"
	"codemash/internal/metrics"
	"codemash/internal/ports"
	"codemash/internal/types"
)

// envelope is the queue message payload produced by the voting front end.
type envelope struct {
	SubmissionID string `json:"submission_id"`
	WhiteID      int64  `json:"white_id"`
	BlackID      int64  `json:"black_id"`
	WhiteScore   int    `json:"white_score"`
	BlackScore   int    `json:"black_score"`
	OccurredAt   string `json:"occurred_at"`
	IP           string `json:"ip"`
}

// Loop drains the games queue one batch at a time: decode, screen through
// the watchman, hand to the ingestion pipeline, acknowledge. Messages are
// handled synchronously one by one; throughput scales by running more worker
// processes against the same queue, not by adding goroutines here.
type Loop struct {
	queue    ports.Queue
	store    ports.GameStore
	watchman *flow.Watchman
	metrics  *metrics.Metrics
	k        float64
	now      func() time.Time
}

func NewLoop(queue ports.Queue, store ports.GameStore, watchman *flow.Watchman, m *metrics.Metrics, k float64) *Loop {
	return &Loop{
		queue:    queue,
		store:    store,
		watchman: watchman,
		metrics:  m,
		k:        k,
		now:      time.Now,
	}
}

// SetNowFunc overrides the wall clock, for tests.
func (l *Loop) SetNowFunc(f func() time.Time) {
	l.now = f
}

// Run polls until ctx is canceled or an infrastructure error escapes.
// There is no internal retry: supervision restarts the whole process.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.RunOnce(ctx); err != nil {
			return err
		}
	}
}

// RunOnce fetches and handles a single batch. Split out so tests can drive
// the loop without an infinite goroutine.
func (l *Loop) RunOnce(ctx context.Context) error {
	msgs, err := l.queue.Receive(ctx)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := l.handle(ctx, msg); err != nil {
			return err
		}
		if err := l.queue.Delete(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// handle runs one message through watchman and coordinator. A nil return
// means the message is handled and must be acked, including validation
// failures, vanished participants and conflicting resubmissions. Only
// infrastructure errors come back non-nil and leave the message queued for
// redelivery.
func (l *Loop) handle(ctx context.Context, msg ports.Message) error {
	sub, attempt, err := parseMessage(msg.Body)
	if err != nil {
		l.metrics.MalformedMessages.Inc()
		log.WithError(err).WithField("message_id", msg.ID).Error("dropping malformed message")
		return nil
	}

	now := l.now().UTC()
	l.watchman.Add(now, attempt)
	if l.watchman.IsBannedAt(attempt.IP, now) {
		l.metrics.BannedSkips.Inc()
		log.WithFields(log.Fields{
			"ip":            attempt.IP,
			"submission_id": sub.ID,
		}).Info("skipping submission from banned client")
		return nil
	}

	err = flow.ProcessSubmission(ctx, l.store, sub, l.k)
	switch {
	case err == nil:
		l.metrics.Processed.Inc()
		log.WithFields(log.Fields{
			"submission_id": sub.ID,
			"white_id":      sub.WhiteID,
			"black_id":      sub.BlackID,
		}).Debug("submission processed")

	case errors.Is(err, types.ErrDeletedFromStore):
		l.metrics.MissingParticipants.Inc()
		log.WithError(err).WithField("submission_id", sub.ID).Warn("skipping submission, participant deleted from store")

	case errors.Is(err, types.ErrConflictingResubmission):
		// Someone replayed a known submission id with a different outcome.
		l.metrics.Conflicts.Inc()
		log.WithError(err).WithFields(log.Fields{
			"submission_id": sub.ID,
			"ip":            attempt.IP,
		}).Warn("conflicting resubmission, keeping original result")

	case errors.Is(err, types.ErrSelfMatch), errors.Is(err, types.ErrUnknownMatchResult):
		// Upstream pairing bug; redelivery can never make this processable.
		l.metrics.MalformedMessages.Inc()
		log.WithError(err).WithField("submission_id", sub.ID).Error("dropping unprocessable submission")

	default:
		return err
	}
	return nil
}

// parseMessage decodes the queue envelope into a Submission plus the attempt
// the watchman should observe.
func parseMessage(body []byte) (types.Submission, types.Attempt, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return types.Submission{}, types.Attempt{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.SubmissionID == "" {
		return types.Submission{}, types.Attempt{}, fmt.Errorf("envelope missing submission_id")
	}
	if env.IP == "" {
		return types.Submission{}, types.Attempt{}, fmt.Errorf("envelope missing ip")
	}
	result, err := types.NewResult(env.WhiteScore, env.BlackScore)
	if err != nil {
		return types.Submission{}, types.Attempt{}, err
	}
	occurredAt, err := time.Parse(time.RFC3339, env.OccurredAt)
	if err != nil {
		return types.Submission{}, types.Attempt{}, fmt.Errorf("parse occurred_at: %w", err)
	}

	sub := types.Submission{
		ID:      env.SubmissionID,
		WhiteID: env.WhiteID,
		BlackID: env.BlackID,
		Result:  result,
	}
	return sub, types.Attempt{IP: env.IP, At: occurredAt.UTC()}, nil
}
