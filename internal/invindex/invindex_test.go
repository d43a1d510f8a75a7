package invindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerd/core/internal/trackconfig"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := trackconfig.Default().Index
	cfg.Path = filepath.Join(t.TempDir(), "words.idx")
	cfg.Divisions = 2
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostingRoundTrip(t *testing.T) {
	t.Parallel()

	p := Posting{ServiceID: 42, ServiceType: 7, Score: 250}
	enc := encodePosting(p)
	got := decodePosting(enc[:])
	assert.Equal(t, p, got)
}

func TestAppendOneAndQuerySingle(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.AppendOne("report", Posting{ServiceID: 1, ServiceType: 1, Score: 10}))
	require.NoError(t, s.AppendOne("report", Posting{ServiceID: 2, ServiceType: 1, Score: 30}))

	hits, err := s.GetHitsSingle("report", 0, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, uint32(2), hits[0].ServiceID) // higher score first
	assert.Equal(t, uint32(1), hits[1].ServiceID)
}

func TestUpdateWordAccumulatesScore(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.UpdateWord("invoice", 5, 1, 10))
	require.NoError(t, s.UpdateWord("invoice", 5, 1, 5))

	hits, err := s.GetHitsSingle("invoice", 0, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(15), hits[0].Score)
}

func TestUpdateWordRemovesOnNonPositiveScore(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.UpdateWord("invoice", 5, 1, 10))
	require.NoError(t, s.UpdateWord("invoice", 5, 1, -20))

	hits, err := s.GetHitsSingle("invoice", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestGetHitsMultiIntersectsAndSumsScores(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.AppendOne("alpha", Posting{ServiceID: 1, ServiceType: 1, Score: 10}))
	require.NoError(t, s.AppendOne("alpha", Posting{ServiceID: 2, ServiceType: 1, Score: 10}))
	require.NoError(t, s.AppendOne("beta", Posting{ServiceID: 1, ServiceType: 1, Score: 5}))

	hits, err := s.GetHitsMulti([]string{"alpha", "beta"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint32(1), hits[0].ServiceID)
	assert.Equal(t, int64(15), hits[0].Score)
}

func TestApplyDifferentialRemovesDroppedTerms(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	old := map[string]int{"quarterly": 1, "report": 2}
	require.NoError(t, s.ApplyDifferential(9, 1, 1, map[string]int{}, old))

	next := map[string]int{"report": 2}
	require.NoError(t, s.ApplyDifferential(9, 1, 1, old, next))

	hits, err := s.GetHitsSingle("quarterly", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.GetHitsSingle("report", 0, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestShouldOptimizeRatio(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.cfg.MinBucketCount = 0
	s.cfg.BucketRatio = 2.0
	s.cfg.MaxBucketCount = 1000

	assert.True(t, s.shouldOptimize(Stats{RecordCount: 100, BucketCount: 10}))
	assert.False(t, s.shouldOptimize(Stats{RecordCount: 10, BucketCount: 10}))
}
