package invindex

import (
	bolt "go.etcd.io/bbolt"

	"github.com/trackerd/core/internal/trackererr"
)

// AppendOne adds a single posting for term, assuming no existing entry for
// serviceID (the fast path used during initial bulk indexing), matching
// tracker_indexer_append_word's single CR_DCAT append.
func (s *Store) AppendOne(term string, p Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.divisionFor(term))
		enc := encodePosting(p)
		return b.Put([]byte(term), append(b.Get([]byte(term)), enc[:]...))
	})
}

// UpdateWord adds delta to serviceID's existing score for term (creating
// the entry if absent), removing it entirely once the resulting score
// drops below 1, reproducing tracker_indexer_update_word's
// read-scan-rewrite-or-delete sequence exactly including the "remove on
// non-positive score" rule.
func (s *Store) UpdateWord(term string, serviceID uint32, serviceType uint8, delta int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.divisionFor(term))
		key := []byte(term)
		existing := decodePostings(b.Get(key))

		idx := -1
		for i, p := range existing {
			if p.ServiceID == serviceID {
				idx = i
				break
			}
		}

		if idx == -1 {
			if delta <= 0 {
				return nil // nothing to remove, nothing to add
			}
			existing = append(existing, Posting{ServiceID: serviceID, ServiceType: serviceType, Score: delta})
			return b.Put(key, encodePostings(existing))
		}

		newScore := existing[idx].Score + delta
		if newScore < 1 {
			existing = append(existing[:idx], existing[idx+1:]...)
		} else {
			existing[idx].Score = newScore
			existing[idx].ServiceType = serviceType
		}

		if len(existing) == 0 {
			return b.Delete(key)
		}
		return b.Put(key, encodePostings(existing))
	})
}

// ApplyDifferential reindexes one resource's text after an update: for
// every term present in either oldTerms or newTerms, the occurrence-count
// delta (weighted) is applied via UpdateWord, so a term whose count did
// not change is skipped without touching the index and a term that
// disappeared entirely is removed outright.
func (s *Store) ApplyDifferential(serviceID uint32, serviceType uint8, weight int16, oldTerms, newTerms map[string]int) error {
	seen := make(map[string]struct{}, len(oldTerms)+len(newTerms))
	for term := range oldTerms {
		seen[term] = struct{}{}
	}
	for term := range newTerms {
		seen[term] = struct{}{}
	}

	for term := range seen {
		delta := int16((newTerms[term] - oldTerms[term])) * weight
		if delta == 0 {
			continue
		}
		if err := s.UpdateWord(term, serviceID, serviceType, delta); err != nil {
			return trackererr.New(trackererr.KindIO, "invindex.ApplyDifferential", err)
		}
	}
	return nil
}

// RemoveResource strips every trace of serviceID from the terms it
// previously held, used when a resource is deleted outright.
func (s *Store) RemoveResource(serviceID uint32, oldTerms map[string]int) error {
	for term := range oldTerms {
		if err := s.UpdateWord(term, serviceID, 0, -32767); err != nil {
			return trackererr.New(trackererr.KindIO, "invindex.RemoveResource", err)
		}
	}
	return nil
}
