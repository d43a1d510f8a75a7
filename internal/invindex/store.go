// Package invindex is the on-disk inverted word index: a term->postings
// store supporting append, differential update, and ranked multi-word
// retrieval, re-expressing the CURIA hash-file semantics of
// tracker-indexer.c on top of go.etcd.io/bbolt's single-writer,
// many-reader B+tree transactions.
package invindex

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dolthub/maphash"
	bolt "go.etcd.io/bbolt"

	"github.com/trackerd/core/internal/trackconfig"
	"github.com/trackerd/core/internal/trackererr"
)

// metaBucket is created by Open for store-wide bookkeeping; nothing is
// written to it, and the counts the optimize-ratio decision uses are
// computed on demand by Stats from the division buckets.
var metaBucket = []byte("__meta__")

// Store is the inverted index. Writes are serialized with mu (bbolt
// itself only allows one write transaction at a time, but mu also guards
// the read-modify-write Update sequence against interleaving with a
// concurrent Optimize compaction); reads go through bbolt's native MVCC
// snapshots and need no external lock.
type Store struct {
	db        *bolt.DB
	cfg       trackconfig.IndexConfig
	divisions int
	hasher    maphash.Hasher[string]

	mu sync.Mutex
}

// Open opens (creating if absent) the index file at cfg.Path, creates one
// bucket per division plus the metadata bucket, and runs the size guard.
// There is no repair pass: any error from bbolt while opening or creating
// the buckets is returned as KindCorrupt.
func Open(cfg trackconfig.IndexConfig) (*Store, error) {
	if cfg.Divisions <= 0 {
		cfg.Divisions = 1
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, trackererr.New(trackererr.KindCorrupt, "invindex.Open", err)
	}

	s := &Store{
		db:        db,
		cfg:       cfg,
		divisions: cfg.Divisions,
		hasher:    maphash.NewHasher[string](),
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for i := 0; i < s.divisions; i++ {
			if _, err := tx.CreateBucketIfNotExists(s.divisionName(i)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, trackererr.New(trackererr.KindCorrupt, "invindex.Open", err)
	}

	if err := s.reconcileSizeGuard(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close flushes and releases the index file.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) divisionName(i int) []byte {
	return []byte(fmt.Sprintf("div%d", i))
}

// divisionFor routes a term to its shard by a stable hash, spreading
// postings-heavy common terms across divisions the same way the original
// engine's multiple CURIA files split load by first-letter ranges.
func (s *Store) divisionFor(term string) []byte {
	h := s.hasher.Hash(term)
	return s.divisionName(int(h % uint64(s.divisions)))
}

// reconcileSizeGuard returns a KindNoSpace error when the index file is
// already larger than cfg.MaxIndexFileBytes. It runs only from Open, so
// an over-size file fails to open; writes on an open Store are not
// checked against the limit.
func (s *Store) reconcileSizeGuard() error {
	if s.cfg.MaxIndexFileBytes <= 0 {
		return nil
	}
	info, err := os.Stat(s.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return trackererr.New(trackererr.KindIO, "invindex.reconcileSizeGuard", err)
	}
	if info.Size() > s.cfg.MaxIndexFileBytes {
		return trackererr.Newf(trackererr.KindNoSpace, "invindex.reconcileSizeGuard",
			"index file %s is %d bytes, exceeding the %d byte limit", s.cfg.Path, info.Size(), s.cfg.MaxIndexFileBytes)
	}
	return nil
}

// Stats reports the total record and bucket counts across every division,
// the inputs optimize.go's ratio decision needs.
type Stats struct {
	RecordCount int
	BucketCount int
}

func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		for i := 0; i < s.divisions; i++ {
			b := tx.Bucket(s.divisionName(i))
			if b == nil {
				continue
			}
			st.BucketCount += b.Stats().KeyN
			c := b.Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				st.RecordCount += len(v) / postingSize
			}
		}
		return nil
	})
	return st, err
}
