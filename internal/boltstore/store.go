// Package boltstore implements the back repositories over an embedded BoltDB
// file. Records are stored as JSON, ordered queries go through index buckets
// whose keys sort like the query.
package boltstore

import (
	"encoding/binary"
	"encoding/json"
	"helo/internal/back"
	"helo/internal/util"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var _ back.Store = (*Store)(nil)

// nolint:gochecknoglobals
var (
	bucketEntities      = []byte("entities")       // ID → Entity
	bucketEntityTags    = []byte("entity_tags")    // Tag → ID
	bucketMatches       = []byte("matches")        // ID → Match
	bucketMatchDates    = []byte("match_dates")    // Date|ID
	bucketEntityMatches = []byte("entity_matches") // EntityID|Date|MatchID
	bucketPending       = []byte("pending")        // Date|ID of matches needing recalculation
	bucketLedger        = []byte("ledger")         // EntityID|MatchID → LedgerEntry
	bucketLedgerSeq     = []byte("ledger_seq")     // EntityID|Seq|MatchID
)

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, v := range [][]byte{
			bucketEntities, bucketEntityTags,
			bucketMatches, bucketMatchDates, bucketEntityMatches, bucketPending,
			bucketLedger, bucketLedgerSeq,
		} {
			if _, err := tx.CreateBucketIfNotExists(v); err != nil {
				return errors.Wrapf(err, "unable to create bucket %s", v)
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "unable to close database")
}

func get(b *bolt.Bucket, key []byte, dst interface{}) error {
	data := b.Get(key)
	if data == nil {
		return back.ErrNotFound
	}

	return errors.Wrap(json.Unmarshal(data, dst), "unable to unmarshal record")
}

func put(b *bolt.Bucket, key []byte, src interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return errors.Wrap(err, "unable to marshal record")
	}

	return errors.Wrap(b.Put(key, data), "unable to put record")
}

// key concatenates parts into a single index key.
func key(parts ...[]byte) []byte {
	n := 0
	for _, v := range parts {
		n += len(v)
	}

	ret := make([]byte, 0, n)
	for _, v := range parts {
		ret = append(ret, v...)
	}

	return ret
}

// timeKey encodes t so that byte order follows time order, negative
// timestamps included.
func timeKey(t util.TimeAsTimestamp) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, uint64(t.Unix())^(1<<63))

	return ret
}

func intKey(v int) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, uint64(v))

	return ret
}

// lastID returns the trailing 16 bytes of an index key.
func lastID(k []byte) util.UUIDAsBlob {
	var ret util.UUIDAsBlob
	copy(ret[:], k[len(k)-16:])

	return ret
}
