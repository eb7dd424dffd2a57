package services

import (
	"math"

	"result-verification-system/models"
)

const (
	DefaultKFactor = 32
	DefaultRating  = 1200
)

// Outcome is a match result from one team's point of view.
type Outcome int

const (
	OutcomeLoss Outcome = iota
	OutcomeDraw
	OutcomeWin
)

// Invert returns the same result seen from the opponent.
func (o Outcome) Invert() Outcome {
	switch o {
	case OutcomeWin:
		return OutcomeLoss
	case OutcomeLoss:
		return OutcomeWin
	}
	return OutcomeDraw
}

// ExpectedScore is the ELO win expectancy of a against b.
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1 / (1 + math.Pow(10, float64(ratingB-ratingA)/400))
}

// ActualScore maps an outcome onto 1, 0.5 or 0.
func ActualScore(o Outcome) float64 {
	switch o {
	case OutcomeWin:
		return 1.0
	case OutcomeDraw:
		return 0.5
	}
	return 0.0
}

// RatingEngine computes ELO deltas. It has no side effects beyond the
// ranking passed to UpdateElo.
type RatingEngine struct {
	K float64
}

func NewRatingEngine(k int) RatingEngine {
	if k <= 0 {
		k = DefaultKFactor
	}
	return RatingEngine{K: float64(k)}
}

// Delta returns round(K * (actual - expected)).
func (e RatingEngine) Delta(rating, opponentRating int, o Outcome) int {
	return int(math.Round(e.K * (ActualScore(o) - ExpectedScore(rating, opponentRating))))
}

// UpdateElo applies one match to r against an opponent rated opponentRating
// and returns the delta. The opponent rating must be the pre-match value.
func (e RatingEngine) UpdateElo(r *models.TeamRanking, opponentRating int, o Outcome) int {
	delta := e.Delta(r.EloRating, opponentRating, o)
	r.EloRating += delta
	r.GamesPlayed++
	switch o {
	case OutcomeWin:
		r.Wins++
	case OutcomeLoss:
		r.Losses++
	default:
		r.Draws++
	}
	return delta
}
