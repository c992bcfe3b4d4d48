package back

import (
	"context"
	"errors"
	"fmt"
	"helo/internal/util"
	"sort"
	"time"
)

// A LedgerEntry is the rating of an entity right after a match.
// Entries of an entity are numbered 1..n following (CreatedAt, MatchID), the
// SequenceNumber of an entry is the number of matches the entity had played
// once it was applied.
type LedgerEntry struct {
	EntityID       util.UUIDAsBlob
	MatchID        util.UUIDAsBlob
	SequenceNumber int
	RatingAfter    int

	// CreatedAt is the date of the match, not of the write.
	CreatedAt util.TimeAsTimestamp
}

// IsDefault reports whether e is the synthetic entry standing before the
// first match of an entity.
func (e LedgerEntry) IsDefault() bool {
	return e.MatchID.IsZero()
}

func (b *Back) defaultEntry(entityID util.UUIDAsBlob) LedgerEntry {
	return LedgerEntry{
		EntityID:    entityID,
		RatingAfter: b.rules.DefaultRating,
	}
}

// Append stores e, replacing any previous entry of the same entity for the
// same match.
func (b *Back) Append(ctx context.Context, e LedgerEntry) error {
	if e.EntityID.IsZero() || e.MatchID.IsZero() {
		return errors.New("ledger entries need both an entity and a match")
	}
	if e.SequenceNumber <= 0 {
		return fmt.Errorf("invalid sequence number %d for entity %s", e.SequenceNumber, e.EntityID)
	}

	return b.store.UpsertEntry(ctx, e)
}

// EntryFor returns the entry of entityID for m. When there is none it walks
// back through the entity's earlier matches until one has an entry, ending
// on the default entry. direct reports whether the entry belongs to m.
func (b *Back) EntryFor(ctx context.Context, entityID util.UUIDAsBlob, m Match) (
	entry LedgerEntry, direct bool, err error,
) {
	entry, err = b.store.GetEntry(ctx, entityID, m.ID)
	if err == nil {
		return entry, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return LedgerEntry{}, false, err
	}

	// Every step moves strictly backward in (Date, ID) order.
	cur := m
	for {
		if err := ctx.Err(); err != nil {
			return LedgerEntry{}, false, err
		}

		prev, err := b.store.PreviousMatchOf(ctx, entityID, cur)
		if errors.Is(err, ErrNotFound) {
			return b.defaultEntry(entityID), false, nil
		}
		if err != nil {
			return LedgerEntry{}, false, err
		}

		entry, err := b.store.GetEntry(ctx, entityID, prev.ID)
		if err == nil {
			return entry, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return LedgerEntry{}, false, err
		}

		cur = prev
	}
}

// EntryAtSequence returns the n-th entry of entityID, or the default entry.
func (b *Back) EntryAtSequence(ctx context.Context, entityID util.UUIDAsBlob, n int) (LedgerEntry, error) {
	if n <= 0 {
		return b.defaultEntry(entityID), nil
	}

	entry, err := b.store.GetEntryBySequence(ctx, entityID, n)
	if errors.Is(err, ErrNotFound) {
		return b.defaultEntry(entityID), nil
	}

	return entry, err
}

// priorState is what an entity brings into a match.
type priorState struct {
	Rating     int
	MatchCount int

	// Existing is the entity's entry for the match, if any.
	Existing    LedgerEntry
	HasExisting bool
}

func (b *Back) priorState(ctx context.Context, entityID util.UUIDAsBlob, m Match) (priorState, error) {
	entry, direct, err := b.EntryFor(ctx, entityID, m)
	if err != nil {
		return priorState{}, err
	}

	if !direct {
		return priorState{
			Rating:     entry.RatingAfter,
			MatchCount: entry.SequenceNumber,
		}, nil
	}

	before, err := b.EntryAtSequence(ctx, entityID, entry.SequenceNumber-1)
	if err != nil {
		return priorState{}, err
	}

	return priorState{
		Rating:      before.RatingAfter,
		MatchCount:  before.SequenceNumber,
		Existing:    entry,
		HasExisting: true,
	}, nil
}

// RatingBefore returns the rating and match count entityID had right before
// playing m.
func (b *Back) RatingBefore(ctx context.Context, entityID util.UUIDAsBlob, m Match) (int, int, error) {
	prior, err := b.priorState(ctx, entityID, m)
	if err != nil {
		return 0, 0, err
	}

	return prior.Rating, prior.MatchCount, nil
}

// History returns the ledger of an entity, oldest first.
func (b *Back) History(ctx context.Context, entityID util.UUIDAsBlob) ([]LedgerEntry, error) {
	if _, err := b.store.GetEntity(ctx, entityID); err != nil {
		return nil, err
	}

	return b.store.Entries(ctx, entityID)
}

type byLedgerOrder []LedgerEntry

func (a byLedgerOrder) Len() int {
	return len(a)
}

func (a byLedgerOrder) Less(i, j int) bool {
	if !a[i].CreatedAt.Equal(a[j].CreatedAt) {
		return a[i].CreatedAt.Before(a[j].CreatedAt)
	}

	return a[i].MatchID.Compare(a[j].MatchID) < 0
}

func (a byLedgerOrder) Swap(i, j int) {
	a[i], a[j] = a[j], a[i]
}

// resequence renumbers the entries of entityID 1..n in (CreatedAt, MatchID)
// order, writing only the entries whose number changed. It returns how many
// entries were renumbered.
func (b *Back) resequence(ctx context.Context, entityID util.UUIDAsBlob) (int, error) {
	entries, err := b.store.Entries(ctx, entityID)
	if err != nil {
		return 0, err
	}

	sort.Sort(byLedgerOrder(entries))
	changed := 0
	for k, v := range entries {
		if v.SequenceNumber == k+1 {
			continue
		}

		v.SequenceNumber = k + 1
		if err := b.store.UpsertEntry(ctx, v); err != nil {
			return changed, fmt.Errorf("unable to renumber entry of match %s: %w", v.MatchID, err)
		}
		changed++
	}

	return changed, nil
}

// syncEntity copies the latest entry of an entity into its live rating.
// It returns the latest entry.
func (b *Back) syncEntity(ctx context.Context, entityID util.UUIDAsBlob) (LedgerEntry, error) {
	entity, err := b.store.GetEntity(ctx, entityID)
	if err != nil {
		return LedgerEntry{}, err
	}

	latest, err := b.store.LatestEntry(ctx, entityID)
	if errors.Is(err, ErrNotFound) {
		latest = b.defaultEntry(entityID)
	} else if err != nil {
		return LedgerEntry{}, err
	}

	if entity.Rating == latest.RatingAfter && entity.MatchCount == latest.SequenceNumber {
		return latest, nil
	}

	entity.Rating = latest.RatingAfter
	entity.MatchCount = latest.SequenceNumber
	entity.LastUpdated = util.NewTimeAsTimestamp(time.Now())

	return latest, b.store.UpsertEntity(ctx, entity)
}
