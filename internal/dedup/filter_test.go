package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// mockHashIndex implements driven.HashIndex for testing.
type mockHashIndex struct {
	hashes map[string]string
	getErr error
	putErr error
}

func newMockHashIndex() *mockHashIndex {
	return &mockHashIndex{hashes: make(map[string]string)}
}

func (m *mockHashIndex) Get(_ context.Context, sourceID, docID string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	h, ok := m.hashes[sourceID+"|"+docID]
	return h, ok, nil
}

func (m *mockHashIndex) Put(_ context.Context, sourceID, docID, hash string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.hashes[sourceID+"|"+docID] = hash
	return nil
}

func doc(id, body string) *domain.Document {
	return &domain.Document{
		DocID:       id,
		SourceID:    "confluence/main",
		Title:       "title",
		Body:        body,
		ContentHash: domain.HashContent("title", body),
	}
}

func TestFilter_ClassifyNew(t *testing.T) {
	f := NewFilter(newMockHashIndex(), nil, 0, "confluence/main")

	decision, err := f.Classify(context.Background(), doc("d1", "hello world"))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNew, decision)
}

func TestFilter_ClassifyUnchanged(t *testing.T) {
	index := newMockHashIndex()
	f := NewFilter(index, nil, 0, "confluence/main")
	d := doc("d1", "hello world")

	require.NoError(t, f.Commit(context.Background(), d))

	decision, err := f.Classify(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionUnchanged, decision)
}

func TestFilter_ClassifyChanged(t *testing.T) {
	index := newMockHashIndex()
	f := NewFilter(index, nil, 0, "confluence/main")

	require.NoError(t, f.Commit(context.Background(), doc("d1", "original body")))

	decision, err := f.Classify(context.Background(), doc("d1", "edited body"))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionChanged, decision)
}

func TestFilter_NearDuplicateSkipped(t *testing.T) {
	f := NewFilter(newMockHashIndex(), Jaccard{}, 0.9, "confluence/main")
	body := "the release process cuts a branch tags it and ships it to production"

	first := doc("d1", body)
	require.NoError(t, f.Commit(context.Background(), first))

	decision, err := f.Classify(context.Background(), doc("d2", body))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNearDuplicate, decision)
}

func TestFilter_NearDuplicateWithinOneBatch(t *testing.T) {
	// Two near-identical documents classified back to back, before either
	// is committed, must not both pass as new.
	f := NewFilter(newMockHashIndex(), Jaccard{}, 0.9, "confluence/main")
	body := "the release process cuts a branch tags it and ships it to production"

	first, err := f.Classify(context.Background(), doc("d1", body))
	require.NoError(t, err)
	require.Equal(t, domain.DecisionNew, first)

	second, err := f.Classify(context.Background(), doc("d2", body))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNearDuplicate, second)
}

func TestFilter_ChangedBodyJoinsWindow(t *testing.T) {
	// A changed document's fresh body is in-run content a later new
	// document can near-duplicate.
	index := newMockHashIndex()
	body := "the incident review template lists impact timeline and follow ups"

	seed := NewFilter(index, Jaccard{}, 0.9, "confluence/main")
	require.NoError(t, seed.Commit(context.Background(), doc("d1", "old body")))

	f := NewFilter(index, Jaccard{}, 0.9, "confluence/main")
	changed, err := f.Classify(context.Background(), doc("d1", body))
	require.NoError(t, err)
	require.Equal(t, domain.DecisionChanged, changed)

	decision, err := f.Classify(context.Background(), doc("d2", body))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNearDuplicate, decision)
}

func TestFilter_DistinctBodiesStayNew(t *testing.T) {
	f := NewFilter(newMockHashIndex(), Jaccard{}, 0.9, "confluence/main")

	require.NoError(t, f.Commit(context.Background(),
		doc("d1", "the release process cuts a branch and tags it")))

	decision, err := f.Classify(context.Background(),
		doc("d2", "database migrations run before the deploy starts rolling"))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNew, decision)
}

func TestFilter_HashEqualityBeatsSimilarity(t *testing.T) {
	// An exact match by hash must classify as unchanged even when the
	// near-duplicate window would also match it.
	index := newMockHashIndex()
	f := NewFilter(index, Jaccard{}, 0.5, "confluence/main")
	d := doc("d1", "identical content in every respect for both checks")

	require.NoError(t, f.Commit(context.Background(), d))

	decision, err := f.Classify(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionUnchanged, decision)
}

func TestFilter_ZeroThresholdDisablesSimilarity(t *testing.T) {
	f := NewFilter(newMockHashIndex(), Jaccard{}, 0, "confluence/main")
	body := "word for word the same body as the previous document"

	require.NoError(t, f.Commit(context.Background(), doc("d1", body)))

	decision, err := f.Classify(context.Background(), doc("d2", body))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNew, decision)
}

func TestFilter_IndexErrorPropagates(t *testing.T) {
	index := newMockHashIndex()
	index.getErr = errors.New("disk gone")
	f := NewFilter(index, nil, 0, "confluence/main")

	_, err := f.Classify(context.Background(), doc("d1", "body"))
	assert.Error(t, err)
}

func TestFilter_CommitPersistsHash(t *testing.T) {
	index := newMockHashIndex()
	f := NewFilter(index, nil, 0, "confluence/main")
	d := doc("d1", "body")

	require.NoError(t, f.Commit(context.Background(), d))

	hash, ok, err := index.Get(context.Background(), "confluence/main", "d1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, d.ContentHash, hash)
}

func TestFilter_ReplayConverges(t *testing.T) {
	// Re-classifying a batch after a crash-replay must yield unchanged
	// for everything already committed.
	index := newMockHashIndex()
	docs := []*domain.Document{
		doc("d1", "first body"),
		doc("d2", "second body"),
	}

	run1 := NewFilter(index, nil, 0, "confluence/main")
	for _, d := range docs {
		decision, err := run1.Classify(context.Background(), d)
		require.NoError(t, err)
		require.Equal(t, domain.DecisionNew, decision)
		require.NoError(t, run1.Commit(context.Background(), d))
	}

	run2 := NewFilter(index, nil, 0, "confluence/main")
	for _, d := range docs {
		decision, err := run2.Classify(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionUnchanged, decision)
	}
}
