package boltstore_test

import (
	"context"
	"helo/internal/back"
	"helo/internal/boltstore"
	"helo/internal/locker"
	"helo/internal/rating"
	"helo/internal/storetest"
	"helo/internal/util"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) back.Store {
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "helo.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestTagIsUnique(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	a := back.NewEntity("StDb", "", 600)
	b := back.NewEntity("StDb", "", 600)

	require.NoError(t, store.UpsertEntity(ctx, a))
	require.Error(t, store.UpsertEntity(ctx, b))

	// Renaming frees the old tag.
	a.Tag = "StDb2"
	require.NoError(t, store.UpsertEntity(ctx, a))
	require.NoError(t, store.UpsertEntity(ctx, b))
}

func TestCascadeOverBolt(t *testing.T) {
	ctx := context.Background()
	b := back.New(newTestStore(t), locker.NewMemory(), rating.Primary)

	var e []back.Entity
	for _, tag := range []string{"StDb", "91st"} {
		entity, err := b.CreateEntity(ctx, tag, "")
		require.NoError(t, err)
		e = append(e, entity)
	}

	day := time.Date(2022, 1, 7, 20, 0, 0, 0, time.UTC)
	m := back.NewMatch("m", day, []util.UUIDAsBlob{e[0].ID}, []util.UUIDAsBlob{e[1].ID})
	m.ObjectivePoints1 = 5
	require.NoError(t, m.Confirm(back.Side1, "a"))
	require.NoError(t, m.Confirm(back.Side2, "b"))
	require.NoError(t, b.CreateMatch(ctx, m))
	require.NoError(t, b.ConfirmMatch(ctx, m.ID))

	_, err := b.ApplyCorrection(ctx, m.ID, []byte(`{"ObjectivePoints1": 0, "ObjectivePoints2": 5}`))
	require.NoError(t, err)
	n, err := b.RecalculatePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := b.GetEntity(ctx, e[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 580, got.Rating)
	assert.Equal(t, 1, got.MatchCount)

	history, err := b.History(ctx, e[1].ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 620, history[0].RatingAfter)
}
