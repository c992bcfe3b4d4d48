// Package storetest holds the behaviour every back.Store implementation
// must share.
package storetest

import (
	"context"
	"helo/internal/back"
	"helo/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nolint:gochecknoglobals
var day0 = time.Date(2022, 1, 7, 20, 0, 0, 0, time.UTC)

// Run runs the whole contract against fresh stores returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) back.Store) {
	t.Run("entities", func(t *testing.T) { testEntities(t, newStore(t)) })
	t.Run("matches", func(t *testing.T) { testMatches(t, newStore(t)) })
	t.Run("matches from", func(t *testing.T) { testMatchesFrom(t, newStore(t)) })
	t.Run("previous match", func(t *testing.T) { testPreviousMatchOf(t, newStore(t)) })
	t.Run("ledger", func(t *testing.T) { testLedger(t, newStore(t)) })
}

func testEntities(t *testing.T, s back.Store) {
	ctx := context.Background()

	_, err := s.GetEntity(ctx, util.NewUUIDAsBlob())
	assert.ErrorIs(t, err, back.ErrNotFound)
	_, err = s.GetEntityByTag(ctx, "StDb")
	assert.ErrorIs(t, err, back.ErrNotFound)

	list, err := s.ListEntities(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	a := back.NewEntity("StDb", "Stoßtrupp Donnerbalken", 600)
	b := back.NewEntity("91st", "91st Infantry", 600)
	c := back.NewEntity("CoRe", "Comrades in Arms", 600)
	for _, v := range []back.Entity{a, b, c} {
		require.NoError(t, s.UpsertEntity(ctx, v))
	}

	got, err := s.GetEntity(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	b.Rating = 640
	b.MatchCount = 2
	require.NoError(t, s.UpsertEntity(ctx, b))
	got, err = s.GetEntityByTag(ctx, "91st")
	require.NoError(t, err)
	assert.Equal(t, b, got)

	list, err = s.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"91st", "CoRe", "StDb"}, []string{list[0].Tag, list[1].Tag, list[2].Tag})
}

func newEntities(t *testing.T, s back.Store, n int) []util.UUIDAsBlob {
	ret := make([]util.UUIDAsBlob, n)
	for k := range ret {
		e := back.NewEntity(string(rune('A'+k)), "", 600)
		require.NoError(t, s.UpsertEntity(context.Background(), e))
		ret[k] = e.ID
	}

	return ret
}

func newMatch(ref string, day int, side1, side2 []util.UUIDAsBlob) back.Match {
	m := back.NewMatch(ref, day0.AddDate(0, 0, day), side1, side2)
	m.ObjectivePoints1 = 5

	return m
}

func testMatches(t *testing.T, s back.Store) {
	ctx := context.Background()
	e := newEntities(t, s, 3)

	_, err := s.GetMatch(ctx, util.NewUUIDAsBlob())
	assert.ErrorIs(t, err, back.ErrNotFound)

	m := newMatch("m", 0, e[:1], e[1:])
	m.Entries[1].Players = 30
	m.Entries[2].Players = 20
	require.NoError(t, m.Confirm(back.Side1, "someone"))
	require.NoError(t, s.UpsertMatch(ctx, m))

	got, err := s.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.False(t, got.ConfirmedBySide2.Valid)

	// Entries are replaced, not merged.
	m.Entries = m.Entries[:2]
	m.Posted = true
	m.NeedsRecalculation = true
	m.ObjectivePoints1, m.ObjectivePoints2 = 0, 5
	require.NoError(t, s.UpsertMatch(ctx, m))

	got, err = s.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	other := newMatch("other", 1, e[1:2], e[2:3])
	require.NoError(t, s.UpsertMatch(ctx, other))

	pending, err := s.MatchesNeedingRecalculation(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, m.ID, pending[0].ID)
	assert.Len(t, pending[0].Entries, 2)
}

func testMatchesFrom(t *testing.T, s back.Store) {
	ctx := context.Background()
	e := newEntities(t, s, 2)

	matches := []back.Match{
		newMatch("d0", 0, e[:1], e[1:]),
		newMatch("d1a", 1, e[:1], e[1:]),
		newMatch("d1b", 1, e[1:], e[:1]),
		newMatch("d2", 2, e[:1], e[1:]),
	}
	for _, v := range matches {
		require.NoError(t, s.UpsertMatch(ctx, v))
	}

	sorted := append([]back.Match(nil), matches...)
	back.SortMatches(sorted)

	got, err := s.MatchesFrom(ctx, matches[1])
	require.NoError(t, err)
	want := make([]back.Match, 0, 2)
	for _, v := range sorted {
		if v.ID != matches[1].ID && !v.Date.Before(matches[1].Date) {
			want = append(want, v)
		}
	}
	assert.Equal(t, want, got)

	got, err = s.MatchesFrom(ctx, back.Match{Date: matches[0].Date})
	require.NoError(t, err)
	assert.Equal(t, sorted, got)

	got, err = s.MatchesFrom(ctx, back.Match{Date: util.NewTimeAsTimestamp(day0.AddDate(0, 0, 3))})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testPreviousMatchOf(t *testing.T, s back.Store) {
	ctx := context.Background()
	e := newEntities(t, s, 3)

	first := newMatch("first", 0, e[:1], e[1:2])
	sameA := newMatch("same-a", 1, e[:1], e[2:3])
	sameB := newMatch("same-b", 1, e[2:3], e[:1])
	unrelated := newMatch("unrelated", 1, e[1:2], e[2:3])
	for _, v := range []back.Match{first, sameA, sameB, unrelated} {
		require.NoError(t, s.UpsertMatch(ctx, v))
	}

	lo, hi := sameA, sameB
	if hi.Before(lo) {
		lo, hi = hi, lo
	}

	got, err := s.PreviousMatchOf(ctx, e[0], hi)
	require.NoError(t, err)
	assert.Equal(t, lo.ID, got.ID)
	assert.Len(t, got.Entries, 2)

	got, err = s.PreviousMatchOf(ctx, e[0], lo)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.PreviousMatchOf(ctx, e[0], first)
	assert.ErrorIs(t, err, back.ErrNotFound)

	// e[1] did not play on day 1 besides unrelated.
	got, err = s.PreviousMatchOf(ctx, e[1], newMatch("later", 5, e[1:2], e[2:3]))
	require.NoError(t, err)
	assert.Equal(t, unrelated.ID, got.ID)
}

func testLedger(t *testing.T, s back.Store) {
	ctx := context.Background()
	e := newEntities(t, s, 2)
	m1 := newMatch("m1", 0, e[:1], e[1:])
	m2 := newMatch("m2", 1, e[:1], e[1:])

	_, err := s.GetEntry(ctx, e[0], m1.ID)
	assert.ErrorIs(t, err, back.ErrNotFound)
	_, err = s.GetEntryBySequence(ctx, e[0], 1)
	assert.ErrorIs(t, err, back.ErrNotFound)
	_, err = s.LatestEntry(ctx, e[0])
	assert.ErrorIs(t, err, back.ErrNotFound)
	entries, err := s.Entries(ctx, e[0])
	require.NoError(t, err)
	assert.Empty(t, entries)

	first := back.LedgerEntry{EntityID: e[0], MatchID: m1.ID, SequenceNumber: 1, RatingAfter: 620, CreatedAt: m1.Date}
	second := back.LedgerEntry{EntityID: e[0], MatchID: m2.ID, SequenceNumber: 2, RatingAfter: 639, CreatedAt: m2.Date}
	other := back.LedgerEntry{EntityID: e[1], MatchID: m1.ID, SequenceNumber: 1, RatingAfter: 580, CreatedAt: m1.Date}
	for _, v := range []back.LedgerEntry{second, first, other, first} {
		require.NoError(t, s.UpsertEntry(ctx, v))
	}

	got, err := s.GetEntry(ctx, e[0], m2.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	got, err = s.GetEntryBySequence(ctx, e[0], 1)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = s.LatestEntry(ctx, e[0])
	require.NoError(t, err)
	assert.Equal(t, second, got)

	entries, err = s.Entries(ctx, e[0])
	require.NoError(t, err)
	assert.Equal(t, []back.LedgerEntry{first, second}, entries)

	// Renumbering moves the entry in the sequence index.
	second.SequenceNumber = 3
	second.RatingAfter = 650
	require.NoError(t, s.UpsertEntry(ctx, second))
	_, err = s.GetEntryBySequence(ctx, e[0], 2)
	assert.ErrorIs(t, err, back.ErrNotFound)
	got, err = s.GetEntryBySequence(ctx, e[0], 3)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	entries, err = s.Entries(ctx, e[1])
	require.NoError(t, err)
	assert.Equal(t, []back.LedgerEntry{other}, entries)
}
