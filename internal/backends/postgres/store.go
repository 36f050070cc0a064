package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"codemash/internal/types"
)

// Store persists participants and submissions in PostgreSQL.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open dials the database and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (s *Store) FindParticipantsByIDs(ctx context.Context, whiteID, blackID int64) (types.Participant, types.Participant, error) {
	var zero types.Participant
	query := `
		SELECT participant_id, name, url, is_active, rating
		FROM participants
		WHERE participant_id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array([]int64{whiteID, blackID}))
	if err != nil {
		return zero, zero, fmt.Errorf("find participants: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	found := make(map[int64]types.Participant, 2)
	for rows.Next() {
		var p types.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.URL, &p.Active, &p.Rating); err != nil {
			return zero, zero, fmt.Errorf("scan participant: %w", err)
		}
		found[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return zero, zero, fmt.Errorf("find participants: %w", err)
	}
	white, ok := found[whiteID]
	if !ok {
		return zero, zero, types.Err(types.ErrNotFound, nil, "participant %d does not exist", whiteID)
	}
	black, ok := found[blackID]
	if !ok {
		return zero, zero, types.Err(types.ErrNotFound, nil, "participant %d does not exist", blackID)
	}
	return white, black, nil
}

func (s *Store) FindSubmissionByID(ctx context.Context, submissionID string) (types.Submission, error) {
	query := `
		SELECT submission_id, white_id, black_id, white_score, black_score
		FROM submissions
		WHERE submission_id = $1
	`
	var (
		sub        types.Submission
		whiteScore int
		blackScore int
	)
	err := s.db.QueryRowContext(ctx, query, submissionID).
		Scan(&sub.ID, &sub.WhiteID, &sub.BlackID, &whiteScore, &blackScore)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Submission{}, types.Err(types.ErrNotFound, nil, "submission %s does not exist", submissionID)
	}
	if err != nil {
		return types.Submission{}, fmt.Errorf("find submission: %w", err)
	}
	sub.Result, err = types.NewResult(whiteScore, blackScore)
	if err != nil {
		return types.Submission{}, fmt.Errorf("stored submission %s: %w", submissionID, err)
	}
	return sub, nil
}

// SaveSubmissionAndRatings inserts the submission row and writes both new
// ratings in one transaction at serializable isolation. The primary key on
// submissions.submission_id is the sole concurrency control: a collision is
// surfaced as types.ErrDuplicateSubmission and the caller reconciles against
// the stored row.
func (s *Store) SaveSubmissionAndRatings(ctx context.Context, sub types.Submission, white, black types.Participant) error {
	whiteScore, blackScore, err := sub.Result.Scores()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin save submission: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submissions (submission_id, white_id, black_id, white_score, black_score)
		VALUES ($1, $2, $3, $4, $5)
	`, sub.ID, sub.WhiteID, sub.BlackID, whiteScore, blackScore)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Err(types.ErrDuplicateSubmission, err, "submission %s already recorded", sub.ID)
		}
		return fmt.Errorf("insert submission: %w", err)
	}

	for _, p := range []types.Participant{white, black} {
		_, err := tx.ExecContext(ctx, `
			UPDATE participants SET rating = $1 WHERE participant_id = $2
		`, p.Rating, p.ID)
		if err != nil {
			return fmt.Errorf("update rating of participant %d: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save submission: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
