package back_test

import (
	"context"
	"helo/internal/back"
	"helo/internal/locker"
	"helo/internal/rating"
	"helo/internal/sqlstore"
	"helo/internal/util"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// nolint:gochecknoglobals
var day0 = time.Date(2022, 1, 7, 20, 0, 0, 0, time.UTC)

type fixture struct {
	back  *back.Back
	store *sqlstore.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "helo.db")
	f, err := os.Create(path)
	require.NoError(t, err)
	f.Close()

	require.NoError(t, sqlstore.Migrate("file://../../resources/migrations", path))

	store, err := sqlstore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return fixture{
		back:  back.New(store, locker.NewMemory(), rating.Primary),
		store: store,
	}
}

func (f fixture) entities(t *testing.T, tags ...string) []back.Entity {
	t.Helper()

	ret := make([]back.Entity, 0, len(tags))
	for _, tag := range tags {
		entity, err := f.back.CreateEntity(context.Background(), tag, "Clan "+tag)
		require.NoError(t, err)
		ret = append(ret, entity)
	}

	return ret
}

func ids(entities ...back.Entity) []util.UUIDAsBlob {
	ret := make([]util.UUIDAsBlob, 0, len(entities))
	for _, v := range entities {
		ret = append(ret, v.ID)
	}

	return ret
}

// newMatch creates a confirmed, unposted match day days after day0.
func (f fixture) newMatch(
	t *testing.T, ref string, day int,
	side1, side2 []back.Entity,
	points1, points2 int,
) back.Match {
	t.Helper()

	m := back.NewMatch(ref, day0.AddDate(0, 0, day), ids(side1...), ids(side2...))
	m.ObjectivePoints1 = points1
	m.ObjectivePoints2 = points2
	require.NoError(t, m.Confirm(back.Side1, "ref-1"))
	require.NoError(t, m.Confirm(back.Side2, "ref-2"))
	require.NoError(t, f.back.CreateMatch(context.Background(), m))

	return m
}

func (f fixture) postMatch(
	t *testing.T, ref string, day int,
	side1, side2 []back.Entity,
	points1, points2 int,
) back.Match {
	t.Helper()

	m := f.newMatch(t, ref, day, side1, side2, points1, points2)
	require.NoError(t, f.back.ConfirmMatch(context.Background(), m.ID))

	m, err := f.back.GetMatch(context.Background(), m.ID)
	require.NoError(t, err)

	return m
}

func (f fixture) entity(t *testing.T, e back.Entity) back.Entity {
	t.Helper()

	ret, err := f.back.GetEntity(context.Background(), e.ID)
	require.NoError(t, err)

	return ret
}

// requireRating checks the live rating and match count of an entity.
func (f fixture) requireRating(t *testing.T, e back.Entity, rating, matchCount int) {
	t.Helper()

	got := f.entity(t, e)
	require.Equal(t, rating, got.Rating, "rating of %s", e.Tag)
	require.Equal(t, matchCount, got.MatchCount, "match count of %s", e.Tag)
}

// rebuild posts the given matches in (Date, ID) order on a fresh database,
// this is the state a cascade has to converge to.
func rebuild(t *testing.T, entities []back.Entity, matches []back.Match) fixture {
	t.Helper()

	f := newFixture(t)
	ctx := context.Background()
	for _, v := range entities {
		v.Rating = rating.Primary.DefaultRating
		v.MatchCount = 0
		require.NoError(t, f.store.UpsertEntity(ctx, v))
	}

	sorted := append([]back.Match(nil), matches...)
	back.SortMatches(sorted)
	for _, v := range sorted {
		v.Posted = false
		v.NeedsRecalculation = false
		require.NoError(t, f.back.CreateMatch(ctx, v))
		require.NoError(t, f.back.ConfirmMatch(ctx, v.ID))
	}

	return f
}

// requireSameLedger compares entity ratings and ledgers of two fixtures.
func requireSameLedger(t *testing.T, want, got fixture, entities []back.Entity) {
	t.Helper()
	ctx := context.Background()

	for _, v := range entities {
		require.Equal(t, want.entity(t, v).Rating, got.entity(t, v).Rating, "rating of %s", v.Tag)
		require.Equal(t, want.entity(t, v).MatchCount, got.entity(t, v).MatchCount, "match count of %s", v.Tag)

		wantHistory, err := want.back.History(ctx, v.ID)
		require.NoError(t, err)
		gotHistory, err := got.back.History(ctx, v.ID)
		require.NoError(t, err)
		require.Equal(t, wantHistory, gotHistory, "ledger of %s", v.Tag)
	}
}

// hookStore calls back around some store calls, to interleave concurrent
// writers at a chosen point.
type hookStore struct {
	back.Store

	onUpsertEntry func()
	onGetMatch    func(m *back.Match)
}

func (s *hookStore) UpsertEntry(ctx context.Context, e back.LedgerEntry) error {
	if s.onUpsertEntry != nil {
		s.onUpsertEntry()
	}

	return s.Store.UpsertEntry(ctx, e)
}

func (s *hookStore) GetMatch(ctx context.Context, id util.UUIDAsBlob) (back.Match, error) {
	m, err := s.Store.GetMatch(ctx, id)
	if err == nil && s.onGetMatch != nil {
		s.onGetMatch(&m)
	}

	return m, err
}
