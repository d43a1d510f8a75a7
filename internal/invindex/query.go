package invindex

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	bolt "go.etcd.io/bbolt"
)

// Hit is one ranked search result: a resource id with its combined score
// across every queried term.
type Hit struct {
	ServiceID uint32
	Score     int64
}

// GetHitsSingle returns every posting for term ordered by descending
// score, the single-word path of get_hits_for_single_word with no
// intersection step required.
func (s *Store) GetHitsSingle(term string, offset, limit int) ([]Hit, error) {
	var postings []Posting
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.divisionFor(term))
		postings = decodePostings(b.Get([]byte(term)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(postings))
	for _, p := range postings {
		hits = append(hits, Hit{ServiceID: p.ServiceID, Score: int64(p.Score)})
	}
	return rankAndSlice(hits, offset, limit), nil
}

// GetHitsMulti performs conjunctive (AND) multi-word retrieval: each
// term's postings are loaded into a roaring.Bitmap of resource ids, the
// bitmaps are intersected so only resources containing every term
// survive, and the surviving resources' scores are summed across terms
// before ranking — the Go-native replacement for the original engine's
// qsort-by-score merge over a single word's hits, generalized to more
// than one word via bitmap intersection instead of nested linear scans.
func (s *Store) GetHitsMulti(terms []string, offset, limit int) ([]Hit, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if len(terms) == 1 {
		return s.GetHitsSingle(terms[0], offset, limit)
	}

	postingsByTerm := make([][]Posting, len(terms))
	bitmaps := make([]*roaring.Bitmap, len(terms))

	err := s.db.View(func(tx *bolt.Tx) error {
		for i, term := range terms {
			b := tx.Bucket(s.divisionFor(term))
			postings := decodePostings(b.Get([]byte(term)))
			postingsByTerm[i] = postings

			bm := roaring.New()
			for _, p := range postings {
				bm.Add(p.ServiceID)
			}
			bitmaps[i] = bm
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	intersection := bitmaps[0].Clone()
	for _, bm := range bitmaps[1:] {
		intersection.And(bm)
	}

	scores := make(map[uint32]int64, intersection.GetCardinality())
	for _, postings := range postingsByTerm {
		for _, p := range postings {
			if intersection.Contains(p.ServiceID) {
				scores[p.ServiceID] += int64(p.Score)
			}
		}
	}

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, Hit{ServiceID: id, Score: score})
	}
	return rankAndSlice(hits, offset, limit), nil
}

// rankAndSlice orders hits by descending score (ties broken by ascending
// id for determinism) and applies the offset/limit window, matching
// get_hits_for_single_word's qsort-then-slice behavior.
func rankAndSlice(hits []Hit, offset, limit int) []Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ServiceID < hits[j].ServiceID
	})

	if offset >= len(hits) {
		return nil
	}
	end := len(hits)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return hits[offset:end]
}
