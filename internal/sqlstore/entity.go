package sqlstore

import (
	"context"
	"helo/internal/back"
	"helo/internal/util"

	"github.com/Masterminds/squirrel"
)

func (s *Store) GetEntity(ctx context.Context, id util.UUIDAsBlob) (back.Entity, error) {
	var ret back.Entity
	query := `SELECT * FROM Entity WHERE Entity.ID = ? LIMIT 1`
	if err := s.db.GetContext(ctx, &ret, query, id); err != nil {
		return back.Entity{}, notFound(err)
	}

	return ret, nil
}

func (s *Store) GetEntityByTag(ctx context.Context, tag string) (back.Entity, error) {
	var ret back.Entity
	query := `SELECT * FROM Entity WHERE Entity.Tag = ? LIMIT 1`
	if err := s.db.GetContext(ctx, &ret, query, tag); err != nil {
		return back.Entity{}, notFound(err)
	}

	return ret, nil
}

func (s *Store) UpsertEntity(ctx context.Context, e back.Entity) error {
	query, args, err := squirrel.Insert("Entity").SetMap(squirrel.Eq{
		"ID":          e.ID,
		"CreatedAt":   e.CreatedAt,
		"LastUpdated": e.LastUpdated,
		"Tag":         e.Tag,
		"Name":        e.Name,
		"Rating":      e.Rating,
		"MatchCount":  e.MatchCount,
	}).Suffix(`ON CONFLICT (ID) DO UPDATE SET
        LastUpdated = excluded.LastUpdated,
        Tag = excluded.Tag,
        Name = excluded.Name,
        Rating = excluded.Rating,
        MatchCount = excluded.MatchCount`,
	).ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return nil
}

func (s *Store) ListEntities(ctx context.Context) ([]back.Entity, error) {
	var ret []back.Entity
	query := `SELECT * FROM Entity ORDER BY Entity.Rating DESC, Entity.Tag ASC`
	if err := s.db.SelectContext(ctx, &ret, query); err != nil {
		return nil, err
	}

	return ret, nil
}
