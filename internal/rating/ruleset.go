package rating

import (
	"fmt"
	"math"
	"strings"
)

// A Ruleset holds the constants that differ between deployments of the
// ladder. Only use the values exported here, do not hand-craft one outside
// of tests.
type Ruleset struct {
	Name string

	// DefaultRating is the rating of an entity that never played.
	DefaultRating int

	// Bounds for ObjectivePoints1 + ObjectivePoints2, inclusive.
	// MaxPointsSum is also the total number of objectives on a map.
	MinPointsSum, MaxPointsSum int

	// AllowedFactors lists the valid competitive factors, 1 being the
	// regular match.
	AllowedFactors []float64

	// BasePlayerCount is the player count per side for which the player
	// count term is neutral.
	BasePlayerCount int
}

// Rulesets in use.
var (
	Primary = Ruleset{ // nolint:gochecknoglobals
		Name:            "primary",
		DefaultRating:   600,
		MinPointsSum:    4,
		MaxPointsSum:    5,
		AllowedFactors:  []float64{0.5, 0.8, 1, 1.2},
		BasePlayerCount: 50,
	}

	// Console matches are rated separately, entities start higher.
	Console = Ruleset{ // nolint:gochecknoglobals
		Name:            "console",
		DefaultRating:   1000,
		MinPointsSum:    4,
		MaxPointsSum:    5,
		AllowedFactors:  []float64{0.5, 0.8, 1, 1.2},
		BasePlayerCount: 50,
	}
)

// RulesetByName returns one of the known rulesets.
func RulesetByName(name string) (Ruleset, error) {
	switch strings.ToLower(name) {
	case "", Primary.Name:
		return Primary, nil
	case Console.Name:
		return Console, nil
	default:
		return Ruleset{}, fmt.Errorf("unknown ruleset: %q", name)
	}
}

// CheckPoints validates the objective points of both sides.
func (rs Ruleset) CheckPoints(points1, points2 int) error {
	if points1 < 0 || points2 < 0 || points1 > rs.MaxPointsSum || points2 > rs.MaxPointsSum {
		return fmt.Errorf("%w: %d-%d, each side must be within 0..%d",
			ErrInvalidScoreSum, points1, points2, rs.MaxPointsSum)
	}

	if sum := points1 + points2; sum < rs.MinPointsSum || sum > rs.MaxPointsSum {
		return fmt.Errorf("%w: sum of %d-%d must be within %d..%d",
			ErrInvalidScoreSum, points1, points2, rs.MinPointsSum, rs.MaxPointsSum)
	}

	return nil
}

// CheckFactor validates a competitive factor.
func (rs Ruleset) CheckFactor(factor float64) error {
	for _, v := range rs.AllowedFactors {
		if math.Abs(v-factor) < 1e-9 {
			return nil
		}
	}

	return fmt.Errorf("%w: %g, expected one of %v", ErrInvalidFactor, factor, rs.AllowedFactors)
}
