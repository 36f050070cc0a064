package flow

import (
	"math"

	"codemash/internal/types"
)

// Rate computes both participants' new ratings for a finished match with
// K-factor k. Pure and deterministic: no I/O, no clock. White gains exactly
// what black loses, so the rating pool is conserved.
func Rate(m types.Match, k float64) (white, black types.Participant) {
	// NewMatch guarantees a known result.
	whiteScore, _, _ := m.Result.Scores()

	expected := expectedWhiteScore(m.White.Rating, m.Black.Rating)
	delta := k * (float64(whiteScore) - expected)

	white = m.White
	black = m.Black
	white.Rating += delta
	black.Rating -= delta
	return white, black
}

// expectedWhiteScore is the logistic expected score of the white side.
func expectedWhiteScore(whiteRating, blackRating float64) float64 {
	return 1 / (1 + math.Pow(10, (blackRating-whiteRating)/400))
}
