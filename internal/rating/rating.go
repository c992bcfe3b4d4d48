// Package rating implements the HeLO score: win probabilities, rating
// updates after a match, and their extension to coop matches where several
// entities share a side.
// Nothing in here touches storage.
package rating

import (
	"fmt"
	"math"
)

const (
	// Rating difference above which the win probability stops growing.
	maxRatingDiff = 400

	// Entities with more matches than this adapt slower.
	ExperiencedAfter = 30

	amountFactorNew         = 40
	amountFactorExperienced = 20
)

// WinProbability returns the probability for each side to win, rounded to
// three decimals. It is symmetric: swapping inputs swaps outputs.
func WinProbability(r1, r2 float64) (float64, float64, error) {
	if r1 <= 0 || r2 <= 0 {
		return 0, 0, fmt.Errorf("%w: got %g and %g", ErrInvalidRating, r1, r2)
	}

	diff := math.Min(maxRatingDiff, math.Abs(r1-r2))
	p := round3(0.5 * (math.Erf(diff/maxRatingDiff) + 1))

	if r1 > r2 {
		return p, round3(1 - p), nil
	}

	return round3(1 - p), p, nil
}

// AmountFactor is the volatility of an entity given its number of played
// matches.
func AmountFactor(matches int) float64 {
	if matches > ExperiencedAfter {
		return amountFactorExperienced
	}

	return amountFactorNew
}

// UpdatePair returns the new ratings of two single entities after a match.
func (rs Ruleset) UpdatePair(
	r1, r2 int,
	points1, points2 int,
	matches1, matches2 int,
	factor float64,
	playerCount int,
) (int, int, error) {
	return rs.update(
		float64(r1), float64(r2),
		points1, points2,
		AmountFactor(matches1), AmountFactor(matches2),
		factor, playerCount,
	)
}

// update is UpdatePair with explicit amount factors, the coop aggregator
// feeds it side averages and the slowest factor of each side.
func (rs Ruleset) update(
	r1, r2 float64,
	points1, points2 int,
	a1, a2 float64,
	factor float64,
	playerCount int,
) (int, int, error) {
	if err := rs.CheckPoints(points1, points2); err != nil {
		return 0, 0, err
	}
	if err := rs.CheckFactor(factor); err != nil {
		return 0, 0, err
	}
	if playerCount <= 0 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}

	p1, p2, err := WinProbability(r1, r2)
	if err != nil {
		return 0, 0, err
	}

	players := float64(playerCount) / float64(rs.BasePlayerCount)
	scale := func(a float64) float64 {
		return a * factor * (math.Log(players)/math.Log(a) + 1)
	}
	max := float64(rs.MaxPointsSum)

	new1 := r1 + scale(a1)*(float64(points1)/max-p1)
	new2 := r2 + scale(a2)*(float64(points2)/max-p2)

	return roundInt(new1), roundInt(new2), nil
}

func round3(v float64) float64 {
	return math.RoundToEven(v*1000) / 1000
}

// roundInt rounds half to even, matching the historical ledger values.
func roundInt(v float64) int {
	return int(math.RoundToEven(v))
}
