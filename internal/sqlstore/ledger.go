package sqlstore

import (
	"context"
	"helo/internal/back"
	"helo/internal/util"

	"github.com/Masterminds/squirrel"
)

func (s *Store) GetEntry(ctx context.Context, entityID, matchID util.UUIDAsBlob) (back.LedgerEntry, error) {
	var ret back.LedgerEntry
	query := `
        SELECT * FROM LedgerEntry
        WHERE LedgerEntry.EntityID = ? AND LedgerEntry.MatchID = ?
        LIMIT 1`
	if err := s.db.GetContext(ctx, &ret, query, entityID, matchID); err != nil {
		return back.LedgerEntry{}, notFound(err)
	}

	return ret, nil
}

func (s *Store) GetEntryBySequence(ctx context.Context, entityID util.UUIDAsBlob, n int) (back.LedgerEntry, error) {
	var ret back.LedgerEntry
	query := `
        SELECT * FROM LedgerEntry
        WHERE LedgerEntry.EntityID = ? AND LedgerEntry.SequenceNumber = ?
        ORDER BY LedgerEntry.CreatedAt ASC, LedgerEntry.MatchID ASC
        LIMIT 1`
	if err := s.db.GetContext(ctx, &ret, query, entityID, n); err != nil {
		return back.LedgerEntry{}, notFound(err)
	}

	return ret, nil
}

func (s *Store) LatestEntry(ctx context.Context, entityID util.UUIDAsBlob) (back.LedgerEntry, error) {
	var ret back.LedgerEntry
	query := `
        SELECT * FROM LedgerEntry
        WHERE LedgerEntry.EntityID = ?
        ORDER BY LedgerEntry.SequenceNumber DESC
        LIMIT 1`
	if err := s.db.GetContext(ctx, &ret, query, entityID); err != nil {
		return back.LedgerEntry{}, notFound(err)
	}

	return ret, nil
}

func (s *Store) Entries(ctx context.Context, entityID util.UUIDAsBlob) ([]back.LedgerEntry, error) {
	var ret []back.LedgerEntry
	query := `
        SELECT * FROM LedgerEntry
        WHERE LedgerEntry.EntityID = ?
        ORDER BY LedgerEntry.SequenceNumber ASC,
                 LedgerEntry.CreatedAt ASC,
                 LedgerEntry.MatchID ASC`
	if err := s.db.SelectContext(ctx, &ret, query, entityID); err != nil {
		return nil, err
	}

	return ret, nil
}

func (s *Store) UpsertEntry(ctx context.Context, e back.LedgerEntry) error {
	query, args, err := squirrel.Insert("LedgerEntry").SetMap(squirrel.Eq{
		"EntityID":       e.EntityID,
		"MatchID":        e.MatchID,
		"SequenceNumber": e.SequenceNumber,
		"RatingAfter":    e.RatingAfter,
		"CreatedAt":      e.CreatedAt,
	}).Suffix(`ON CONFLICT (EntityID, MatchID) DO UPDATE SET
        SequenceNumber = excluded.SequenceNumber,
        RatingAfter = excluded.RatingAfter,
        CreatedAt = excluded.CreatedAt`,
	).ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return nil
}
