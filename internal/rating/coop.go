package rating

import (
	"fmt"
	"math"
)

// CoopInput describes a match where one or both sides may hold more than one
// entity. Ratings, Matches and Players are indexed alike per side.
type CoopInput struct {
	Ratings1, Ratings2 []int

	// Number of matches played before this one, for the amount factor.
	Matches1, Matches2 []int

	// Optional player distributions, used as weights when set.
	Players1, Players2 []int

	Points1, Points2 int
	Factor           float64

	// PlayerCount per side, zero means derived from the distributions or
	// the ruleset's base player count.
	PlayerCount int
}

// Aggregate computes the new ratings of every entity of a coop match.
// The match is rated as a single pair of weighted side averages, each side
// using the slowest amount factor of its members, then the gain of a side
// is shared between its members according to their weight.
func (rs Ruleset) Aggregate(in CoopInput) ([]int, []int, error) {
	if err := checkSide(in.Ratings1, in.Matches1); err != nil {
		return nil, nil, fmt.Errorf("side 1: %w", err)
	}
	if err := checkSide(in.Ratings2, in.Matches2); err != nil {
		return nil, nil, fmt.Errorf("side 2: %w", err)
	}

	playerCount := rs.playerCount(in)

	weights1, err := Weights(len(in.Ratings1), in.Players1)
	if err != nil {
		return nil, nil, fmt.Errorf("side 1: %w", err)
	}
	weights2, err := Weights(len(in.Ratings2), in.Players2)
	if err != nil {
		return nil, nil, fmt.Errorf("side 2: %w", err)
	}

	if len(in.Ratings1) == 1 && len(in.Ratings2) == 1 {
		new1, new2, err := rs.UpdatePair(
			in.Ratings1[0], in.Ratings2[0],
			in.Points1, in.Points2,
			in.Matches1[0], in.Matches2[0],
			in.Factor, playerCount,
		)
		if err != nil {
			return nil, nil, err
		}

		return []int{new1}, []int{new2}, nil
	}

	avg1, avg2 := average(in.Ratings1, weights1), average(in.Ratings2, weights2)
	side1, side2, err := rs.update(
		avg1, avg2,
		in.Points1, in.Points2,
		sideAmountFactor(in.Matches1), sideAmountFactor(in.Matches2),
		in.Factor, playerCount,
	)
	if err != nil {
		return nil, nil, err
	}

	return redistribute(in.Ratings1, weights1, float64(side1)-avg1),
		redistribute(in.Ratings2, weights2, float64(side2)-avg2),
		nil
}

// Weights returns the normalized weights of a side of n entities, uniform if
// no distribution is given.
func Weights(n int, players []int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: empty side", ErrDivergentWeights)
	}

	ret := make([]float64, n)
	if len(players) == 0 {
		for k := range ret {
			ret[k] = 1 / float64(n)
		}
		return ret, nil
	}

	if len(players) != n {
		return nil, fmt.Errorf(
			"%w: got %d values for %d entities",
			ErrDivergentWeights, len(players), n,
		)
	}

	var sum int
	for _, v := range players {
		if v < 0 {
			return nil, fmt.Errorf("%w: negative player count %d", ErrDivergentWeights, v)
		}
		sum += v
	}
	if sum == 0 {
		return nil, fmt.Errorf("%w: distribution sums to zero", ErrDivergentWeights)
	}

	for k, v := range players {
		ret[k] = float64(v) / float64(sum)
	}

	return ret, nil
}

func (rs Ruleset) playerCount(in CoopInput) int {
	if in.PlayerCount > 0 {
		return in.PlayerCount
	}

	// Distributions describe the actual number of players on the field.
	for _, dist := range [][]int{in.Players2, in.Players1} {
		var sum int
		for _, v := range dist {
			sum += v
		}
		if sum > 0 {
			return sum
		}
	}

	return rs.BasePlayerCount
}

func checkSide(ratings, matches []int) error {
	if len(ratings) == 0 {
		return fmt.Errorf("%w: empty side", ErrDivergentWeights)
	}
	if len(matches) != len(ratings) {
		return fmt.Errorf(
			"%w: got %d match counts for %d entities",
			ErrDivergentWeights, len(matches), len(ratings),
		)
	}

	return nil
}

// sideAmountFactor is the factor of the most experienced member.
func sideAmountFactor(matches []int) float64 {
	ret := math.Inf(1)
	for _, v := range matches {
		ret = math.Min(ret, AmountFactor(v))
	}

	return ret
}

func average(ratings []int, weights []float64) float64 {
	var ret float64
	for k, v := range ratings {
		ret += float64(v) * weights[k]
	}

	return ret
}

func redistribute(ratings []int, weights []float64, gain float64) []int {
	ret := make([]int, len(ratings))
	for k, v := range ratings {
		ret[k] = roundInt(float64(v) + weights[k]*gain)
	}

	return ret
}
