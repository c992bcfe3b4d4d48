package rating

import "errors"

// Errors returned by the calculator and the aggregator, match them with
// errors.Is as they are always wrapped with some context.
var (
	ErrInvalidScoreSum    = errors.New("invalid objective points")
	ErrSelfPlay           = errors.New("an entity cannot play against itself")
	ErrDivergentWeights   = errors.New("invalid player distribution")
	ErrInvalidRating      = errors.New("ratings must be strictly positive")
	ErrInvalidFactor      = errors.New("invalid competitive factor")
	ErrInvalidPlayerCount = errors.New("player count must be strictly positive")
)
