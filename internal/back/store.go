package back

import (
	"context"
	"errors"
	"helo/internal/util"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// The repositories below are all the Back needs from storage: point lookups,
// upserts keyed by natural identity, and a few ordered queries.
// Implementations are in sqlstore and boltstore.

type EntityRepository interface {
	GetEntity(ctx context.Context, id util.UUIDAsBlob) (Entity, error)
	GetEntityByTag(ctx context.Context, tag string) (Entity, error)
	UpsertEntity(ctx context.Context, e Entity) error

	// ListEntities returns all entities, best rated first.
	ListEntities(ctx context.Context) ([]Entity, error)
}

type MatchRepository interface {
	GetMatch(ctx context.Context, id util.UUIDAsBlob) (Match, error)

	// UpsertMatch stores the match and replaces its entries.
	UpsertMatch(ctx context.Context, m Match) error

	// MatchesFrom returns every match dated on or after m.Date, m excluded,
	// sorted by (Date, ID).
	MatchesFrom(ctx context.Context, m Match) ([]Match, error)

	// PreviousMatchOf returns the last match entityID took part in that is
	// strictly before m in (Date, ID) order, or ErrNotFound.
	PreviousMatchOf(ctx context.Context, entityID util.UUIDAsBlob, m Match) (Match, error)

	// MatchesNeedingRecalculation returns flagged matches sorted by (Date, ID).
	MatchesNeedingRecalculation(ctx context.Context) ([]Match, error)
}

type LedgerStore interface {
	GetEntry(ctx context.Context, entityID, matchID util.UUIDAsBlob) (LedgerEntry, error)
	GetEntryBySequence(ctx context.Context, entityID util.UUIDAsBlob, n int) (LedgerEntry, error)
	LatestEntry(ctx context.Context, entityID util.UUIDAsBlob) (LedgerEntry, error)

	// Entries returns all entries of an entity sorted by sequence number.
	Entries(ctx context.Context, entityID util.UUIDAsBlob) ([]LedgerEntry, error)

	// UpsertEntry inserts or replaces the entry keyed by (EntityID, MatchID).
	UpsertEntry(ctx context.Context, e LedgerEntry) error
}

// Store groups all repositories, both backends implement it with a single
// type.
type Store interface {
	EntityRepository
	MatchRepository
	LedgerStore
}

// A Locker serializes work on overlapping sets of keys.
// The returned function releases every key.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (func(), error)
}

func entityLockKeys(ids []util.UUIDAsBlob) []string {
	ret := make([]string, 0, len(ids))
	for _, v := range ids {
		ret = append(ret, "entity:"+v.String())
	}

	return ret
}
