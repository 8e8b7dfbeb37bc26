package services

import (
	"context"

	"story-content-gateway/models"
)

// StoryStore is the persistent store behind the tree. The child row's
// parent reference is the canonical relationship; ordered child-id lists
// are derived from rows at read time, never persisted.
//
// Implementations must make each Insert*/Delete* atomic: the write
// serializes against concurrent sibling writes on the same parent (row
// lock or equivalent) and rejects order-index collisions with a Conflict
// error, leaving no partial state. Deletes reject parents that still have
// children with a Conflict error. All writes bump the owning story's
// updated timestamp in the same unit of work.
type StoryStore interface {
	// Stories
	GetStory(ctx context.Context, id string) (*models.Story, error)
	CreateStory(ctx context.Context, story *models.Story) error
	UpdateStory(ctx context.Context, story *models.Story) error

	// Single rows
	GetPart(ctx context.Context, id string) (*models.Part, error)
	GetChapter(ctx context.Context, id string) (*models.Chapter, error)
	GetScene(ctx context.Context, id string) (*models.Scene, error)

	// Sibling listings, ordered ascending by order index
	ListParts(ctx context.Context, storyID string) ([]models.Part, error)
	ListChaptersByPart(ctx context.Context, partID string) ([]models.Chapter, error)
	ListStandaloneChapters(ctx context.Context, storyID string) ([]models.Chapter, error)
	ListScenes(ctx context.Context, chapterID string, includeContent bool) ([]models.Scene, error)

	// Structural writes
	InsertPart(ctx context.Context, part *models.Part) error
	InsertChapter(ctx context.Context, chapter *models.Chapter) error
	InsertScene(ctx context.Context, scene *models.Scene) error
	UpdatePart(ctx context.Context, part *models.Part) error
	UpdateChapter(ctx context.Context, chapter *models.Chapter) error
	UpdateScene(ctx context.Context, scene *models.Scene) error
	DeletePart(ctx context.Context, id string) error
	DeleteChapter(ctx context.Context, id string) error
	DeleteScene(ctx context.Context, id string) error

	// Ping checks store connectivity
	Ping(ctx context.Context) error
}

// CacheInvalidator invalidates cached trees for a story. Implemented by
// the tree cache; the relationship service depends on this narrow surface
// so writes never import the cache wiring.
type CacheInvalidator interface {
	InvalidateStory(ctx context.Context, storyID string)
}

// TreeLoader assembles the nested tree for a story
type TreeLoader interface {
	LoadTree(ctx context.Context, storyID string, mode models.TreeMode, viewer Viewer) (*models.StoryTree, error)
}
