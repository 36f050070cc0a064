package types

import "time"

const (
	// RatingChangeCoeff is the default K-factor: the largest rating swing a
	// single outcome can produce.
	RatingChangeCoeff = 24.0

	// DefaultRating seeds participants discovered by the catalog loader.
	DefaultRating = 1800.0
)

// Participant is one side of a pairwise comparison: a catalog entry plus its
// mutable skill rating. Only Rating is ever written back by this worker; the
// remaining fields are owned by the catalog refresh.
type Participant struct {
	ID     int64
	Name   string
	URL    string
	Active bool
	Rating float64
}

// Result is the outcome of one comparison. The zero value is the unknown
// placeholder used before a human has voted; a known result carries a
// validated {0,1} score pair summing to 1. Result is comparable, so a stored
// result and a resubmitted one can be checked with ==.
type Result struct {
	known      bool
	whiteScore int
	blackScore int
}

var (
	UnknownResult = Result{}
	WhiteWins     = Result{known: true, whiteScore: 1, blackScore: 0}
	BlackWins     = Result{known: true, whiteScore: 0, blackScore: 1}
)

// NewResult validates a score pair. Both scores must be 0 or 1 and sum to 1.
func NewResult(whiteScore, blackScore int) (Result, error) {
	if err := checkScore(whiteScore); err != nil {
		return Result{}, err
	}
	if err := checkScore(blackScore); err != nil {
		return Result{}, err
	}
	if whiteScore+blackScore != 1 {
		return Result{}, Err(ErrInvalidScore, nil, "sum of scores should be 1, got %d + %d", whiteScore, blackScore)
	}
	return Result{known: true, whiteScore: whiteScore, blackScore: blackScore}, nil
}

func checkScore(score int) error {
	if score != 0 && score != 1 {
		return Err(ErrInvalidScore, nil, "score should be 0 or 1, got %d", score)
	}
	return nil
}

// Known reports whether a vote has been recorded.
func (r Result) Known() bool { return r.known }

// Scores returns the white and black scores. Asking an unknown result for its
// scores is a programmer error in this worker; the voting front end never
// forwards unknown results.
func (r Result) Scores() (white, black int, err error) {
	if !r.known {
		return 0, 0, ErrUnknownResult
	}
	return r.whiteScore, r.blackScore, nil
}

// Submission is one queued outcome. ID is the caller-supplied idempotency
// key: once a row is persisted under it, it is never overwritten.
type Submission struct {
	ID      string
	WhiteID int64
	BlackID int64
	Result  Result
}

// Match pairs two resolved participants with a known result. Transient, never
// persisted; it exists only to feed the rating computation.
type Match struct {
	White  Participant
	Black  Participant
	Result Result
}

// NewMatch enforces the match invariants: distinct participants, known result.
func NewMatch(white, black Participant, result Result) (Match, error) {
	if white.ID == black.ID {
		return Match{}, Err(ErrSelfMatch, nil, "participant %d cannot play against itself", white.ID)
	}
	if !result.Known() {
		return Match{}, ErrUnknownMatchResult
	}
	return Match{White: white, Black: black, Result: result}, nil
}

// Attempt is one observed submission attempt from a client IP.
type Attempt struct {
	IP string
	At time.Time
}

// BanInfo describes an active ban. Absence (a nil *BanInfo) means not banned.
type BanInfo struct {
	Until  time.Time
	Reason string
}
