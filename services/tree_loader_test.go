package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "story-content-gateway/errors"
	"story-content-gateway/models"
)

// seedFullStory builds a story with one part holding a chapter, plus a
// legacy standalone chapter, each chapter holding one scene
func seedFullStory(store *MockStoryStore, storyID string, status models.PublishStatus) {
	now := time.Now().UTC()
	store.SeedStory(models.Story{
		ID: storyID, AuthorID: "author-1", Title: "Epic",
		PublishStatus: status, CreatedAt: now, UpdatedAt: now,
	})
	store.SeedPart(models.Part{ID: "part-1", StoryID: storyID, Title: "Book One", OrderIndex: 1, UpdatedAt: now})
	store.SeedChapter(models.Chapter{ID: "ch-1", StoryID: storyID, PartID: "part-1", Title: "Chapter", OrderIndex: 1, UpdatedAt: now})
	store.SeedChapter(models.Chapter{ID: "ch-standalone", StoryID: storyID, Title: "Prologue", OrderIndex: 1, UpdatedAt: now})
	store.SeedScene(models.Scene{
		ID: "sc-1", ChapterID: "ch-1", Title: "Scene One",
		Content: "full prose", Visibility: models.VisibilityPublic, OrderIndex: 1, UpdatedAt: now,
	})
	store.SeedScene(models.Scene{
		ID: "sc-2", ChapterID: "ch-standalone", Title: "Prologue Scene",
		Content: "more prose", Visibility: models.VisibilityPublic, OrderIndex: 1, UpdatedAt: now,
	})
}

func TestTreeService_LoadTree_FullMode(t *testing.T) {
	store := NewMockStoryStore()
	seedFullStory(store, "story-1", models.PublishStatusPublished)

	svc := NewTreeService(store, nil, nil)

	tree, err := svc.LoadTree(context.Background(), "story-1", models.TreeModeFull, Viewer{})
	require.NoError(t, err)

	assert.Equal(t, "story-1", tree.ID)
	assert.Equal(t, models.TreeModeFull, tree.Mode)

	require.Len(t, tree.Parts, 1)
	require.Len(t, tree.Parts[0].Chapters, 1)
	require.Len(t, tree.Parts[0].Chapters[0].Scenes, 1)
	assert.Equal(t, "full prose", tree.Parts[0].Chapters[0].Scenes[0].Content)

	// Standalone chapters follow the parts at the top level
	require.Len(t, tree.Chapters, 1)
	assert.Equal(t, "ch-standalone", tree.Chapters[0].ID)
	assert.True(t, tree.Chapters[0].IsStandalone())
}

func TestTreeService_LoadTree_StructureModeOmitsContent(t *testing.T) {
	store := NewMockStoryStore()
	seedFullStory(store, "story-1", models.PublishStatusPublished)

	svc := NewTreeService(store, nil, nil)

	tree, err := svc.LoadTree(context.Background(), "story-1", models.TreeModeStructure, Viewer{})
	require.NoError(t, err)

	assert.Empty(t, tree.Parts[0].Chapters[0].Scenes[0].Content)
	assert.Empty(t, tree.Chapters[0].Scenes[0].Content)

	// Structure is still complete: ids and titles are present
	assert.Equal(t, "Scene One", tree.Parts[0].Chapters[0].Scenes[0].Title)
}

func TestTreeService_LoadTree_DerivedChildIDLists(t *testing.T) {
	store := NewMockStoryStore()
	seedFullStory(store, "story-1", models.PublishStatusPublished)

	svc := NewTreeService(store, nil, nil)

	tree, err := svc.LoadTree(context.Background(), "story-1", models.TreeModeStructure, Viewer{})
	require.NoError(t, err)

	assert.Equal(t, []string{"part-1"}, tree.PartIDs)
	assert.Equal(t, []string{"ch-standalone"}, tree.ChapterIDs)
	assert.Equal(t, []string{"ch-1"}, tree.Parts[0].ChapterIDs)
	assert.Equal(t, []string{"sc-1"}, tree.Parts[0].Chapters[0].SceneIDs)
}

func TestTreeService_LoadTree_SiblingsSortedByOrderIndex(t *testing.T) {
	store := NewMockStoryStore()
	now := time.Now().UTC()
	store.SeedStory(models.Story{ID: "story-1", AuthorID: "author-1", Title: "S", PublishStatus: models.PublishStatusPublished, UpdatedAt: now})
	store.SeedPart(models.Part{ID: "part-late", StoryID: "story-1", Title: "Late", OrderIndex: 5})
	store.SeedPart(models.Part{ID: "part-early", StoryID: "story-1", Title: "Early", OrderIndex: 2})

	svc := NewTreeService(store, nil, nil)

	tree, err := svc.LoadTree(context.Background(), "story-1", models.TreeModeStructure, Viewer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"part-early", "part-late"}, tree.PartIDs)
}

func TestTreeService_LoadTree_InvalidMode(t *testing.T) {
	store := NewMockStoryStore()
	svc := NewTreeService(store, nil, nil)

	_, err := svc.LoadTree(context.Background(), "story-1", models.TreeMode("everything"), Viewer{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestTreeService_LoadTree_StoryNotFound(t *testing.T) {
	store := NewMockStoryStore()
	svc := NewTreeService(store, nil, nil)

	_, err := svc.LoadTree(context.Background(), "missing", models.TreeModeFull, Viewer{})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTreeService_LoadTree_Authorization(t *testing.T) {
	store := NewMockStoryStore()
	seedFullStory(store, "story-1", models.PublishStatusDraft)

	svc := NewTreeService(store, nil, nil)
	ctx := context.Background()

	// Author sees their own draft
	_, err := svc.LoadTree(ctx, "story-1", models.TreeModeFull, Viewer{UserID: "author-1"})
	require.NoError(t, err)

	// Anyone else is rejected
	_, err = svc.LoadTree(ctx, "story-1", models.TreeModeFull, Viewer{UserID: "reader-9"})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = svc.LoadTree(ctx, "story-1", models.TreeModeFull, Viewer{})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestTreeService_LoadTree_DuplicateSiblingOrderFailsSubtree(t *testing.T) {
	store := NewMockStoryStore()
	now := time.Now().UTC()
	store.SeedStory(models.Story{ID: "story-1", AuthorID: "author-1", Title: "S", PublishStatus: models.PublishStatusPublished, UpdatedAt: now})
	// Seed* bypasses collision checks, so a corrupt pair can exist
	store.SeedPart(models.Part{ID: "part-a", StoryID: "story-1", Title: "A", OrderIndex: 1})
	store.SeedPart(models.Part{ID: "part-b", StoryID: "story-1", Title: "B", OrderIndex: 1})

	svc := NewTreeService(store, nil, nil)

	_, err := svc.LoadTree(context.Background(), "story-1", models.TreeModeStructure, Viewer{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIntegrity))
}

func TestTreeService_LoadTree_DuplicateSceneOrderFailsSubtree(t *testing.T) {
	store := NewMockStoryStore()
	now := time.Now().UTC()
	store.SeedStory(models.Story{ID: "story-1", AuthorID: "author-1", Title: "S", PublishStatus: models.PublishStatusPublished, UpdatedAt: now})
	store.SeedChapter(models.Chapter{ID: "ch-1", StoryID: "story-1", Title: "Ch", OrderIndex: 1})
	store.SeedScene(models.Scene{ID: "sc-a", ChapterID: "ch-1", Title: "A", OrderIndex: 2})
	store.SeedScene(models.Scene{ID: "sc-b", ChapterID: "ch-1", Title: "B", OrderIndex: 2})

	svc := NewTreeService(store, nil, nil)

	_, err := svc.LoadTree(context.Background(), "story-1", models.TreeModeFull, Viewer{})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDuplicateOrder, appErr.Code)
}

func TestTreeService_LoadTree_EmptyStory(t *testing.T) {
	store := NewMockStoryStore()
	now := time.Now().UTC()
	store.SeedStory(models.Story{ID: "story-1", AuthorID: "author-1", Title: "Bare", PublishStatus: models.PublishStatusPublished, UpdatedAt: now})

	svc := NewTreeService(store, nil, nil)

	tree, err := svc.LoadTree(context.Background(), "story-1", models.TreeModeFull, Viewer{})
	require.NoError(t, err)

	// Collections are empty, never nil, so JSON renders [] not null
	assert.NotNil(t, tree.Parts)
	assert.NotNil(t, tree.Chapters)
	assert.Empty(t, tree.Parts)
	assert.Empty(t, tree.Chapters)
}
