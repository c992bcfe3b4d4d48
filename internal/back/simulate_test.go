package back_test

import (
	"context"
	"helo/internal/back"
	"helo/internal/rating"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entities(t, "StDb", "91st", "CoRe")

	sim, err := f.back.Simulate(ctx, back.SimulationRequest{
		Side1:   []string{"StDb"},
		Side2:   []string{"91st", "CoRe"},
		Points1: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{620}, sim.Ratings1)
	assert.Equal(t, []int{590, 590}, sim.Ratings2)
	assert.Equal(t, []int{-10, -10}, sim.Deltas2)
	assert.Equal(t, 0.5, sim.Probability1)
	require.Len(t, sim.Side2, 2)
	assert.Equal(t, "CoRe", sim.Side2[1].Tag)

	// Nothing was written.
	f.requireRating(t, e[0], 600, 0)

	_, err = f.back.Simulate(ctx, back.SimulationRequest{
		Side1: []string{"StDb"}, Side2: []string{"StDb"}, Points1: 5,
	})
	assert.ErrorIs(t, err, rating.ErrSelfPlay)

	_, err = f.back.Simulate(ctx, back.SimulationRequest{
		Side1: []string{"StDb"}, Side2: []string{"nope"}, Points1: 5,
	})
	assert.ErrorIs(t, err, back.ErrNotFound)

	_, err = f.back.Simulate(ctx, back.SimulationRequest{
		Side1: []string{"StDb"}, Side2: []string{"91st"}, Points1: 1,
	})
	assert.ErrorIs(t, err, rating.ErrInvalidScoreSum)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entities(t, "StDb", "91st", "CoRe")

	f.postMatch(t, "m", 0, e[1:2], e[0:1], 5, 0)

	board, err := f.back.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "91st", board[0].Tag)
	assert.Equal(t, "StDb", board[1].Tag)

	_, err = f.back.CreateEntity(ctx, "StDb", "again")
	assert.Error(t, err)
}
