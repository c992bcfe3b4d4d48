package boltstore

import (
	"bytes"
	"context"
	"helo/internal/back"
	"helo/internal/util"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

func (s *Store) GetMatch(_ context.Context, id util.UUIDAsBlob) (back.Match, error) {
	var ret back.Match
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx.Bucket(bucketMatches), id.Bytes(), &ret)
	})

	return ret, errors.Wrapf(err, "unable to get match %s", id)
}

func dateKey(m back.Match) []byte {
	return key(timeKey(m.Date), m.ID.Bytes())
}

func entityMatchKey(entityID util.UUIDAsBlob, m back.Match) []byte {
	return key(entityID.Bytes(), timeKey(m.Date), m.ID.Bytes())
}

// UpsertMatch stores the match and moves its index keys.
func (s *Store) UpsertMatch(_ context.Context, m back.Match) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		matches := tx.Bucket(bucketMatches)
		dates := tx.Bucket(bucketMatchDates)
		entityMatches := tx.Bucket(bucketEntityMatches)
		pending := tx.Bucket(bucketPending)

		var prev back.Match
		err := get(matches, m.ID.Bytes(), &prev)
		switch {
		case err == nil:
			if err := dates.Delete(dateKey(prev)); err != nil {
				return err
			}
			if err := pending.Delete(dateKey(prev)); err != nil {
				return err
			}
			for _, v := range prev.Entries {
				if err := entityMatches.Delete(entityMatchKey(v.EntityID, prev)); err != nil {
					return err
				}
			}
		case !errors.Is(err, back.ErrNotFound):
			return err
		}

		if err := dates.Put(dateKey(m), []byte{}); err != nil {
			return err
		}
		if m.NeedsRecalculation {
			if err := pending.Put(dateKey(m), []byte{}); err != nil {
				return err
			}
		}
		for _, v := range m.Entries {
			if err := entityMatches.Put(entityMatchKey(v.EntityID, m), []byte{}); err != nil {
				return err
			}
		}

		return put(matches, m.ID.Bytes(), m)
	})

	return errors.Wrapf(err, "unable to upsert match %s", m.Reference)
}

// scan loads the matches referenced by the index keys of b starting at
// from, in key order.
func scan(tx *bolt.Tx, b *bolt.Bucket, from []byte, skip util.UUIDAsBlob) ([]back.Match, error) {
	ret := []back.Match{}
	matches := tx.Bucket(bucketMatches)
	c := b.Cursor()
	for k, _ := c.Seek(from); k != nil; k, _ = c.Next() {
		id := lastID(k)
		if id == skip {
			continue
		}

		var m back.Match
		if err := get(matches, id.Bytes(), &m); err != nil {
			return nil, errors.Wrapf(err, "dangling index key for match %s", id)
		}
		ret = append(ret, m)
	}

	return ret, nil
}

func (s *Store) MatchesFrom(_ context.Context, m back.Match) ([]back.Match, error) {
	var ret []back.Match
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		ret, err = scan(tx, tx.Bucket(bucketMatchDates), timeKey(m.Date), m.ID)
		return err
	})

	return ret, errors.Wrap(err, "unable to list matches")
}

func (s *Store) MatchesNeedingRecalculation(_ context.Context) ([]back.Match, error) {
	var ret []back.Match
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		ret, err = scan(tx, tx.Bucket(bucketPending), nil, util.UUIDAsBlob{})
		return err
	})

	return ret, errors.Wrap(err, "unable to list pending matches")
}

func (s *Store) PreviousMatchOf(_ context.Context, entityID util.UUIDAsBlob, m back.Match) (back.Match, error) {
	var ret back.Match
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntityMatches).Cursor()
		prefix := entityID.Bytes()

		// Seek lands on m's own key or the first one after it, the
		// previous key is the one we want.
		k, _ := c.Seek(entityMatchKey(entityID, m))
		if k == nil {
			k, _ = c.Last()
		} else {
			k, _ = c.Prev()
		}

		if k == nil || !bytes.HasPrefix(k, prefix) {
			return back.ErrNotFound
		}

		return get(tx.Bucket(bucketMatches), lastID(k).Bytes(), &ret)
	})

	return ret, errors.Wrapf(err, "unable to get match preceding %s", m.Reference)
}
