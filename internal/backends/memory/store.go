package memory

import (
	"context"
	"sync"

	"codemash/internal/types"
)

// Store is an in-memory GameStore with the same contract as the postgres
// backend: append-only submissions keyed by id, rating writes visible only
// when the submission insert succeeds. Used by unit tests and local runs
// without a database.
type Store struct {
	mu           sync.Mutex
	participants map[int64]types.Participant
	submissions  map[string]types.Submission
}

func NewStore() *Store {
	return &Store{
		participants: make(map[int64]types.Participant),
		submissions:  make(map[string]types.Submission),
	}
}

// SeedParticipants inserts or replaces catalog rows. Test setup helper.
func (s *Store) SeedParticipants(participants ...types.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range participants {
		s.participants[p.ID] = p
	}
}

// RemoveParticipant drops a catalog row, simulating a catalog refresh
// deactivating an artifact between pairing and vote.
func (s *Store) RemoveParticipant(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, id)
}

// Participant returns the current state of one row, for assertions.
func (s *Store) Participant(id int64) (types.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	return p, ok
}

func (s *Store) FindParticipantsByIDs(ctx context.Context, whiteID, blackID int64) (types.Participant, types.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero types.Participant
	white, ok := s.participants[whiteID]
	if !ok {
		return zero, zero, types.Err(types.ErrNotFound, nil, "participant %d does not exist", whiteID)
	}
	black, ok := s.participants[blackID]
	if !ok {
		return zero, zero, types.Err(types.ErrNotFound, nil, "participant %d does not exist", blackID)
	}
	return white, black, nil
}

func (s *Store) FindSubmissionByID(ctx context.Context, submissionID string) (types.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[submissionID]
	if !ok {
		return types.Submission{}, types.Err(types.ErrNotFound, nil, "submission %s does not exist", submissionID)
	}
	return sub, nil
}

func (s *Store) SaveSubmissionAndRatings(ctx context.Context, sub types.Submission, white, black types.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.submissions[sub.ID]; exists {
		return types.Err(types.ErrDuplicateSubmission, nil, "submission %s already recorded", sub.ID)
	}
	s.submissions[sub.ID] = sub
	s.participants[white.ID] = white
	s.participants[black.ID] = black
	return nil
}
