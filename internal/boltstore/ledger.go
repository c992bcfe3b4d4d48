package boltstore

import (
	"bytes"
	"context"
	"helo/internal/back"
	"helo/internal/util"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

func seqKey(e back.LedgerEntry) []byte {
	return key(e.EntityID.Bytes(), intKey(e.SequenceNumber), e.MatchID.Bytes())
}

func (s *Store) GetEntry(_ context.Context, entityID, matchID util.UUIDAsBlob) (back.LedgerEntry, error) {
	var ret back.LedgerEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx.Bucket(bucketLedger), key(entityID.Bytes(), matchID.Bytes()), &ret)
	})

	return ret, errors.Wrapf(err, "unable to get entry of %s for match %s", entityID, matchID)
}

func (s *Store) GetEntryBySequence(_ context.Context, entityID util.UUIDAsBlob, n int) (back.LedgerEntry, error) {
	var ret back.LedgerEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		prefix := key(entityID.Bytes(), intKey(n))
		k, _ := tx.Bucket(bucketLedgerSeq).Cursor().Seek(prefix)
		if k == nil || !bytes.HasPrefix(k, prefix) {
			return back.ErrNotFound
		}

		return get(tx.Bucket(bucketLedger), key(entityID.Bytes(), lastID(k).Bytes()), &ret)
	})

	return ret, errors.Wrapf(err, "unable to get entry %d of %s", n, entityID)
}

func (s *Store) LatestEntry(_ context.Context, entityID util.UUIDAsBlob) (back.LedgerEntry, error) {
	var ret back.LedgerEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLedgerSeq).Cursor()
		prefix := entityID.Bytes()

		// Seek past the entity's keys, then step back on its last one.
		next := key(prefix, bytes.Repeat([]byte{0xFF}, 8+16))
		k, _ := c.Seek(next)
		if k == nil {
			k, _ = c.Last()
		} else {
			k, _ = c.Prev()
		}

		if k == nil || !bytes.HasPrefix(k, prefix) {
			return back.ErrNotFound
		}

		return get(tx.Bucket(bucketLedger), key(prefix, lastID(k).Bytes()), &ret)
	})

	return ret, errors.Wrapf(err, "unable to get latest entry of %s", entityID)
}

func (s *Store) Entries(_ context.Context, entityID util.UUIDAsBlob) ([]back.LedgerEntry, error) {
	ret := []back.LedgerEntry{}
	err := s.db.View(func(tx *bolt.Tx) error {
		ledger := tx.Bucket(bucketLedger)
		c := tx.Bucket(bucketLedgerSeq).Cursor()
		prefix := entityID.Bytes()

		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			var e back.LedgerEntry
			if err := get(ledger, key(prefix, lastID(k).Bytes()), &e); err != nil {
				return err
			}
			ret = append(ret, e)
		}

		return nil
	})

	return ret, errors.Wrapf(err, "unable to list entries of %s", entityID)
}

func (s *Store) UpsertEntry(_ context.Context, e back.LedgerEntry) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		ledger, seq := tx.Bucket(bucketLedger), tx.Bucket(bucketLedgerSeq)
		k := key(e.EntityID.Bytes(), e.MatchID.Bytes())

		var prev back.LedgerEntry
		err := get(ledger, k, &prev)
		switch {
		case err == nil:
			if err := seq.Delete(seqKey(prev)); err != nil {
				return err
			}
		case !errors.Is(err, back.ErrNotFound):
			return err
		}

		if err := seq.Put(seqKey(e), []byte{}); err != nil {
			return err
		}

		return put(ledger, k, e)
	})

	return errors.Wrapf(err, "unable to upsert entry of %s for match %s", e.EntityID, e.MatchID)
}
