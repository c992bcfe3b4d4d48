package sqlstore

import (
	"context"
	"helo/internal/back"
	"helo/internal/util"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

func (s *Store) GetMatch(ctx context.Context, id util.UUIDAsBlob) (back.Match, error) {
	var ret back.Match
	query := `SELECT * FROM Match WHERE Match.ID = ? LIMIT 1`
	if err := s.db.GetContext(ctx, &ret, query, id); err != nil {
		return back.Match{}, notFound(err)
	}

	matches := []back.Match{ret}
	if err := s.loadEntries(ctx, matches); err != nil {
		return back.Match{}, err
	}

	return matches[0], nil
}

// UpsertMatch writes the match and its entries in a single transaction, a
// match without its participants is not a valid record.
func (s *Store) UpsertMatch(ctx context.Context, m back.Match) error {
	return util.Transaction(ctx, s.db, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.Insert("Match").SetMap(squirrel.Eq{
			"ID":                 m.ID,
			"CreatedAt":          m.CreatedAt,
			"Reference":          m.Reference,
			"Date":               m.Date,
			"Map":                m.Map,
			"Event":              m.Event,
			"ObjectivePoints1":   m.ObjectivePoints1,
			"ObjectivePoints2":   m.ObjectivePoints2,
			"CompetitiveFactor":  m.CompetitiveFactor,
			"TotalPlayers":       m.TotalPlayers,
			"ConfirmedBySide1":   m.ConfirmedBySide1,
			"ConfirmedBySide2":   m.ConfirmedBySide2,
			"Posted":             m.Posted,
			"NeedsRecalculation": m.NeedsRecalculation,
		}).Suffix(`ON CONFLICT (ID) DO UPDATE SET
            Reference = excluded.Reference,
            Date = excluded.Date,
            Map = excluded.Map,
            Event = excluded.Event,
            ObjectivePoints1 = excluded.ObjectivePoints1,
            ObjectivePoints2 = excluded.ObjectivePoints2,
            CompetitiveFactor = excluded.CompetitiveFactor,
            TotalPlayers = excluded.TotalPlayers,
            ConfirmedBySide1 = excluded.ConfirmedBySide1,
            ConfirmedBySide2 = excluded.ConfirmedBySide2,
            Posted = excluded.Posted,
            NeedsRecalculation = excluded.NeedsRecalculation`,
		).ToSql()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM MatchEntry WHERE MatchEntry.MatchID = ?`, m.ID); err != nil {
			return err
		}

		for _, v := range m.Entries {
			if err := insertMatchEntry(ctx, tx, v); err != nil {
				return err
			}
		}

		return nil
	})
}

func insertMatchEntry(ctx context.Context, tx *sqlx.Tx, e back.MatchEntry) error {
	query, args, err := squirrel.Insert("MatchEntry").SetMap(squirrel.Eq{
		"MatchID":  e.MatchID,
		"EntityID": e.EntityID,
		"Side":     e.Side,
		"Position": e.Position,
		"Players":  e.Players,
	}).ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)

	return err
}

func (s *Store) MatchesFrom(ctx context.Context, m back.Match) ([]back.Match, error) {
	var ret []back.Match
	query := `
        SELECT * FROM Match
        WHERE Match.Date >= ? AND Match.ID != ?
        ORDER BY Match.Date ASC, Match.ID ASC`
	if err := s.db.SelectContext(ctx, &ret, query, m.Date, m.ID); err != nil {
		return nil, err
	}

	if err := s.loadEntries(ctx, ret); err != nil {
		return nil, err
	}

	return ret, nil
}

func (s *Store) PreviousMatchOf(ctx context.Context, entityID util.UUIDAsBlob, m back.Match) (back.Match, error) {
	var ret back.Match
	query := `
        SELECT Match.* FROM Match
        INNER JOIN MatchEntry ON MatchEntry.MatchID = Match.ID
        WHERE MatchEntry.EntityID = ?
          AND (Match.Date < ? OR (Match.Date = ? AND Match.ID < ?))
        ORDER BY Match.Date DESC, Match.ID DESC
        LIMIT 1`
	if err := s.db.GetContext(ctx, &ret, query, entityID, m.Date, m.Date, m.ID); err != nil {
		return back.Match{}, notFound(err)
	}

	matches := []back.Match{ret}
	if err := s.loadEntries(ctx, matches); err != nil {
		return back.Match{}, err
	}

	return matches[0], nil
}

func (s *Store) MatchesNeedingRecalculation(ctx context.Context) ([]back.Match, error) {
	var ret []back.Match
	query := `
        SELECT * FROM Match
        WHERE Match.NeedsRecalculation = 1
        ORDER BY Match.Date ASC, Match.ID ASC`
	if err := s.db.SelectContext(ctx, &ret, query); err != nil {
		return nil, err
	}

	if err := s.loadEntries(ctx, ret); err != nil {
		return nil, err
	}

	return ret, nil
}

// loadEntries fills the Entries of matches in place.
func (s *Store) loadEntries(ctx context.Context, matches []back.Match) error {
	if len(matches) == 0 {
		return nil
	}

	ids := make([]util.UUIDAsBlob, 0, len(matches))
	index := make(map[util.UUIDAsBlob]int, len(matches))
	for k, v := range matches {
		ids = append(ids, v.ID)
		index[v.ID] = k
	}

	query, args, err := squirrel.Select("*").From("MatchEntry").
		Where(squirrel.Eq{"MatchEntry.MatchID": ids}).
		OrderBy("MatchEntry.Side ASC", "MatchEntry.Position ASC").
		ToSql()
	if err != nil {
		return err
	}

	var entries []back.MatchEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return err
	}

	for _, v := range entries {
		k := index[v.MatchID]
		matches[k].Entries = append(matches[k].Entries, v)
	}

	return nil
}
