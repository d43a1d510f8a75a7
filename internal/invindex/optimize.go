package invindex

import (
	"os"

	"github.com/sourcegraph/conc"
	bolt "go.etcd.io/bbolt"

	"github.com/trackerd/core/internal/trackererr"
)

// shouldOptimize reproduces get_preferred_bucket_count's thresholds: when
// the record-to-bucket ratio exceeds cfg.BucketRatio and there's still
// room under MaxBucketCount, a compaction pass is due. A freshly-created
// or tiny index (below MinBucketCount records) never triggers one.
func (s *Store) shouldOptimize(st Stats) bool {
	if st.RecordCount < s.cfg.MinBucketCount {
		return false
	}
	if st.BucketCount == 0 {
		return true
	}
	ratio := float64(st.RecordCount) / float64(st.BucketCount)
	return ratio > s.cfg.BucketRatio && st.BucketCount < s.cfg.MaxBucketCount
}

// Optimize compacts the index file in place: it copies every live
// key/value into a fresh bbolt file (bbolt reclaims free pages on copy,
// the same win CURIA's crreorganize gets from its own bucket rebuild)
// and atomically renames it over the original, matching
// tracker_indexer_optimize's open-new/copy/replace sequence.
func (s *Store) Optimize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath := s.cfg.Path + ".optimize.tmp"
	_ = os.Remove(tmpPath)

	if err := s.db.View(func(tx *bolt.Tx) error {
		f, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		return tx.Copy(f)
	}); err != nil {
		return trackererr.New(trackererr.KindIO, "invindex.Optimize", err)
	}

	if err := s.db.Close(); err != nil {
		return trackererr.New(trackererr.KindIO, "invindex.Optimize", err)
	}
	if err := os.Rename(tmpPath, s.cfg.Path); err != nil {
		return trackererr.New(trackererr.KindIO, "invindex.Optimize", err)
	}

	reopened, err := bolt.Open(s.cfg.Path, 0o600, nil)
	if err != nil {
		return trackererr.New(trackererr.KindCorrupt, "invindex.Optimize", err)
	}
	s.db = reopened
	return nil
}

// MaybeOptimizeAsync checks whether the store has crossed the
// record-to-bucket ratio threshold and, if so, launches Optimize on a
// background goroutine through a sourcegraph/conc WaitGroup, whose Wait
// re-raises a panic from the compaction with its stack trace. An error
// returned by Optimize is discarded. done is closed once the goroutine
// (if any) has finished so callers that care — tests, or `tracker
// update` — can block on it.
func (s *Store) MaybeOptimizeAsync() (scheduled bool, done <-chan struct{}) {
	st, err := s.Stats()
	ch := make(chan struct{})
	if err != nil || !s.shouldOptimize(st) {
		close(ch)
		return false, ch
	}

	go func() {
		defer close(ch)
		var wg conc.WaitGroup
		wg.Go(func() {
			_ = s.Optimize()
		})
		wg.Wait()
	}()
	return true, ch
}
