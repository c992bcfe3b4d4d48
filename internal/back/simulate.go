package back

import (
	"context"
	"fmt"
	"helo/internal/rating"
	"helo/internal/util"
)

// SimulationRequest is a what-if match between entities designated by tag.
type SimulationRequest struct {
	Side1, Side2     []string
	Points1, Points2 int

	// Optional, per entity, indexed like the sides.
	Players1, Players2 []int

	// Zero values stand for a regular match.
	Factor      float64
	PlayerCount int
}

type Simulation struct {
	Side1, Side2 []Entity
	rating.SimulationResult
}

// Simulate rates a match from the current entity ratings without writing
// anything.
func (b *Back) Simulate(ctx context.Context, req SimulationRequest) (Simulation, error) {
	side1, err := b.entitiesByTag(ctx, req.Side1)
	if err != nil {
		return Simulation{}, err
	}
	side2, err := b.entitiesByTag(ctx, req.Side2)
	if err != nil {
		return Simulation{}, err
	}

	for _, v := range side1 {
		for _, w := range side2 {
			if v.ID == w.ID {
				return Simulation{}, fmt.Errorf("entity %s: %w", v.Tag, rating.ErrSelfPlay)
			}
		}
	}

	in := rating.CoopInput{
		Players1:    req.Players1,
		Players2:    req.Players2,
		Points1:     req.Points1,
		Points2:     req.Points2,
		Factor:      req.Factor,
		PlayerCount: req.PlayerCount,
	}
	for _, v := range side1 {
		in.Ratings1 = append(in.Ratings1, v.Rating)
		in.Matches1 = append(in.Matches1, v.MatchCount)
	}
	for _, v := range side2 {
		in.Ratings2 = append(in.Ratings2, v.Rating)
		in.Matches2 = append(in.Matches2, v.MatchCount)
	}

	res, err := b.rules.Simulate(in)
	if err != nil {
		return Simulation{}, err
	}

	return Simulation{
		Side1:            side1,
		Side2:            side2,
		SimulationResult: res,
	}, nil
}

func (b *Back) entitiesByTag(ctx context.Context, tags []string) ([]Entity, error) {
	if len(tags) == 0 {
		return nil, util.ErrPublic("each side needs at least one entity")
	}

	ret := make([]Entity, 0, len(tags))
	for _, tag := range tags {
		entity, err := b.store.GetEntityByTag(ctx, tag)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", tag, err)
		}

		ret = append(ret, entity)
	}

	return ret, nil
}
