package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-content-gateway/models"
)

func loadTestTree(t *testing.T, store *MockStoryStore, mode models.TreeMode) *models.StoryTree {
	t.Helper()
	svc := NewTreeService(store, nil, nil)
	tree, err := svc.LoadTree(context.Background(), "story-1", mode, Viewer{UserID: "author-1"})
	require.NoError(t, err)
	return tree
}

func TestFingerprint_Deterministic(t *testing.T) {
	store := NewMockStoryStore()
	seedFullStory(store, "story-1", models.PublishStatusPublished)

	fp := NewFingerprintService()

	first := fp.Fingerprint(loadTestTree(t, store, models.TreeModeFull))
	second := fp.Fingerprint(loadTestTree(t, store, models.TreeModeFull))

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	store := NewMockStoryStore()
	seedFullStory(store, "story-1", models.PublishStatusPublished)

	fp := NewFingerprintService()
	before := fp.Fingerprint(loadTestTree(t, store, models.TreeModeFull))

	scene, err := store.GetScene(context.Background(), "sc-1")
	require.NoError(t, err)
	scene.Content = "revised prose"
	require.NoError(t, store.UpdateScene(context.Background(), scene))

	after := fp.Fingerprint(loadTestTree(t, store, models.TreeModeFull))
	assert.NotEqual(t, before, after)
}

func TestFingerprint_ModesDiffer(t *testing.T) {
	store := NewMockStoryStore()
	seedFullStory(store, "story-1", models.PublishStatusPublished)

	fp := NewFingerprintService()

	full := fp.Fingerprint(loadTestTree(t, store, models.TreeModeFull))
	structure := fp.Fingerprint(loadTestTree(t, store, models.TreeModeStructure))

	// Structure mode hashes empty scene content, so the two modes cannot
	// share an ETag
	assert.NotEqual(t, full, structure)
}

func TestFingerprint_InsensitiveToSliceOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	partA := models.PartNode{Part: models.Part{ID: "p-a", Title: "A", OrderIndex: 1, UpdatedAt: now}}
	partB := models.PartNode{Part: models.Part{ID: "p-b", Title: "B", OrderIndex: 2, UpdatedAt: now}}

	base := models.StoryTree{
		ID: "story-1", AuthorID: "author-1", Title: "S",
		PublishStatus: models.PublishStatusPublished, UpdatedAt: now,
	}

	ordered := base
	ordered.Parts = []models.PartNode{partA, partB}

	shuffled := base
	shuffled.Parts = []models.PartNode{partB, partA}

	fp := NewFingerprintService()
	assert.Equal(t, fp.Fingerprint(&ordered), fp.Fingerprint(&shuffled))
}

func TestFingerprint_DistinguishesAdjacentFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	one := models.StoryTree{ID: "ab", Title: "c", UpdatedAt: now}
	two := models.StoryTree{ID: "a", Title: "bc", UpdatedAt: now}

	// Length prefixing keeps neighbouring fields from colliding
	fp := NewFingerprintService()
	assert.NotEqual(t, fp.Fingerprint(&one), fp.Fingerprint(&two))
}

func TestFingerprint_NilTree(t *testing.T) {
	fp := NewFingerprintService()
	assert.Empty(t, fp.Fingerprint(nil))
}
