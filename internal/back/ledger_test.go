package back_test

import (
	"context"
	"helo/internal/back"
	"helo/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entities(t, "StDb", "91st")
	m := f.newMatch(t, "StDb-91.-2022-01-07", 0, e[:1], e[1:], 5, 0)

	entry := back.LedgerEntry{
		EntityID:       e[0].ID,
		MatchID:        m.ID,
		SequenceNumber: 1,
		RatingAfter:    620,
		CreatedAt:      m.Date,
	}
	require.NoError(t, f.back.Append(ctx, entry))
	require.NoError(t, f.back.Append(ctx, entry))

	entry.RatingAfter = 630
	require.NoError(t, f.back.Append(ctx, entry))

	history, err := f.back.History(ctx, e[0].ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 630, history[0].RatingAfter)

	assert.Error(t, f.back.Append(ctx, back.LedgerEntry{EntityID: e[0].ID, SequenceNumber: 1}))
	entry.SequenceNumber = 0
	assert.Error(t, f.back.Append(ctx, entry))
}

func TestEntryAtSequenceDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entities(t, "StDb")

	for _, n := range []int{-1, 0, 1, 12} {
		entry, err := f.back.EntryAtSequence(ctx, e[0].ID, n)
		require.NoError(t, err)
		assert.True(t, entry.IsDefault())
		assert.Equal(t, 600, entry.RatingAfter)
		assert.Equal(t, 0, entry.SequenceNumber)
	}
}

func TestRatingBefore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entities(t, "StDb", "91st", "CoRe")

	m1 := f.postMatch(t, "m1", 0, e[:1], e[1:2], 5, 0) // StDb 620, 91st 580
	m2 := f.postMatch(t, "m2", 1, e[:1], e[2:3], 3, 2)

	// Direct hit: the entry before the match's own entry.
	r, n, err := f.back.RatingBefore(ctx, e[0].ID, m2)
	require.NoError(t, err)
	assert.Equal(t, 620, r)
	assert.Equal(t, 1, n)

	r, n, err = f.back.RatingBefore(ctx, e[0].ID, m1)
	require.NoError(t, err)
	assert.Equal(t, 600, r)
	assert.Equal(t, 0, n)

	// Fallback: a match without an entry uses the last earlier entry.
	m3 := f.newMatch(t, "m3", 2, e[1:2], e[:1], 4, 1)
	r, n, err = f.back.RatingBefore(ctx, e[0].ID, m3)
	require.NoError(t, err)
	assert.Equal(t, 623, r)
	assert.Equal(t, 2, n)

	// Never played before: default rating.
	r, n, err = f.back.RatingBefore(ctx, e[2].ID, m1)
	require.NoError(t, err)
	assert.Equal(t, 600, r)
	assert.Equal(t, 0, n)
}

func TestEntryForSameDateFallbackTerminates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entities(t, "StDb", "91st", "CoRe")

	posted := f.postMatch(t, "posted", 0, e[:1], e[1:2], 5, 0)

	// Two unposted matches on the same date, the walk has to step over
	// one of them whatever the ID order is.
	a := f.newMatch(t, "a", 1, e[:1], e[2:3], 5, 0)
	b := f.newMatch(t, "b", 1, e[2:3], e[:1], 5, 0)

	for _, m := range []back.Match{a, b} {
		entry, direct, err := f.back.EntryFor(ctx, e[0].ID, m)
		require.NoError(t, err)
		assert.False(t, direct)
		assert.Equal(t, posted.ID, entry.MatchID)
		assert.Equal(t, 620, entry.RatingAfter)
	}

	entry, direct, err := f.back.EntryFor(ctx, e[2].ID, b)
	require.NoError(t, err)
	assert.False(t, direct)
	assert.True(t, entry.IsDefault())
}

func TestHistoryUnknownEntity(t *testing.T) {
	f := newFixture(t)

	_, err := f.back.History(context.Background(), util.NewUUIDAsBlob())
	assert.ErrorIs(t, err, back.ErrNotFound)
}
