package boltstore

import (
	"context"
	"encoding/json"
	"helo/internal/back"
	"helo/internal/util"
	"sort"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

func (s *Store) GetEntity(_ context.Context, id util.UUIDAsBlob) (back.Entity, error) {
	var ret back.Entity
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx.Bucket(bucketEntities), id.Bytes(), &ret)
	})

	return ret, errors.Wrapf(err, "unable to get entity %s", id)
}

func (s *Store) GetEntityByTag(_ context.Context, tag string) (back.Entity, error) {
	var ret back.Entity
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketEntityTags).Get([]byte(tag))
		if id == nil {
			return back.ErrNotFound
		}

		return get(tx.Bucket(bucketEntities), id, &ret)
	})

	return ret, errors.Wrapf(err, "unable to get entity %s", tag)
}

func (s *Store) UpsertEntity(_ context.Context, e back.Entity) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		entities, tags := tx.Bucket(bucketEntities), tx.Bucket(bucketEntityTags)

		if owner := tags.Get([]byte(e.Tag)); owner != nil && lastID(owner) != e.ID {
			return errors.Errorf("tag %s is already used", e.Tag)
		}

		var prev back.Entity
		if err := get(entities, e.ID.Bytes(), &prev); err == nil && prev.Tag != e.Tag {
			if err := tags.Delete([]byte(prev.Tag)); err != nil {
				return err
			}
		}

		if err := tags.Put([]byte(e.Tag), e.ID.Bytes()); err != nil {
			return err
		}

		return put(entities, e.ID.Bytes(), e)
	})

	return errors.Wrapf(err, "unable to upsert entity %s", e.Tag)
}

func (s *Store) ListEntities(_ context.Context) ([]back.Entity, error) {
	ret := []back.Entity{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntities).ForEach(func(_, v []byte) error {
			var e back.Entity
			if err := json.Unmarshal(v, &e); err != nil {
				return errors.Wrap(err, "unable to unmarshal entity")
			}
			ret = append(ret, e)

			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to list entities")
	}

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Rating == ret[j].Rating {
			return ret[i].Tag < ret[j].Tag
		}
		return ret[i].Rating > ret[j].Rating
	})

	return ret, nil
}
