package services

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "story-content-gateway/errors"
	"story-content-gateway/models"
)

// MockStoryStore is an in-memory StoryStore for tests and local
// development. A single mutex serializes all writes, which trivially
// satisfies the per-parent serialization the interface demands.
type MockStoryStore struct {
	mu       sync.Mutex
	stories  map[string]models.Story
	parts    map[string]models.Part
	chapters map[string]models.Chapter
	scenes   map[string]models.Scene

	// PingErr, when set, is returned by Ping
	PingErr error

	// FailWrites, when set, makes every structural write return this
	// error before touching state
	FailWrites error
}

// NewMockStoryStore creates an empty in-memory store
func NewMockStoryStore() *MockStoryStore {
	return &MockStoryStore{
		stories:  make(map[string]models.Story),
		parts:    make(map[string]models.Part),
		chapters: make(map[string]models.Chapter),
		scenes:   make(map[string]models.Scene),
	}
}

// GetStory returns a story by id
func (m *MockStoryStore) GetStory(ctx context.Context, id string) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	story, ok := m.stories[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCodeStoryNotFound, "story not found: "+id, nil)
	}
	return &story, nil
}

// CreateStory inserts a story row
func (m *MockStoryStore) CreateStory(ctx context.Context, story *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.stories[story.ID] = *story
	return nil
}

// UpdateStory replaces a story row
func (m *MockStoryStore) UpdateStory(ctx context.Context, story *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	if _, ok := m.stories[story.ID]; !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCodeStoryNotFound, "story not found: "+story.ID, nil)
	}
	m.stories[story.ID] = *story
	return nil
}

// GetPart returns a part by id
func (m *MockStoryStore) GetPart(ctx context.Context, id string) (*models.Part, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	part, ok := m.parts[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCodePartNotFound, "part not found: "+id, nil)
	}
	return &part, nil
}

// GetChapter returns a chapter by id
func (m *MockStoryStore) GetChapter(ctx context.Context, id string) (*models.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chapter, ok := m.chapters[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCodeChapterNotFound, "chapter not found: "+id, nil)
	}
	return &chapter, nil
}

// GetScene returns a scene by id
func (m *MockStoryStore) GetScene(ctx context.Context, id string) (*models.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scene, ok := m.scenes[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCodeSceneNotFound, "scene not found: "+id, nil)
	}
	return &scene, nil
}

// ListParts returns a story's parts ordered by order index
func (m *MockStoryStore) ListParts(ctx context.Context, storyID string) ([]models.Part, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var parts []models.Part
	for _, part := range m.parts {
		if part.StoryID == storyID {
			parts = append(parts, part)
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].OrderIndex < parts[j].OrderIndex })
	return parts, nil
}

// ListChaptersByPart returns a part's chapters ordered by order index
func (m *MockStoryStore) ListChaptersByPart(ctx context.Context, partID string) ([]models.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var chapters []models.Chapter
	for _, chapter := range m.chapters {
		if chapter.PartID == partID {
			chapters = append(chapters, chapter)
		}
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].OrderIndex < chapters[j].OrderIndex })
	return chapters, nil
}

// ListStandaloneChapters returns a story's part-less chapters ordered by
// order index
func (m *MockStoryStore) ListStandaloneChapters(ctx context.Context, storyID string) ([]models.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var chapters []models.Chapter
	for _, chapter := range m.chapters {
		if chapter.StoryID == storyID && chapter.IsStandalone() {
			chapters = append(chapters, chapter)
		}
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].OrderIndex < chapters[j].OrderIndex })
	return chapters, nil
}

// ListScenes returns a chapter's scenes ordered by order index. With
// includeContent false the Content field comes back empty.
func (m *MockStoryStore) ListScenes(ctx context.Context, chapterID string, includeContent bool) ([]models.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var scenes []models.Scene
	for _, scene := range m.scenes {
		if scene.ChapterID == chapterID {
			if !includeContent {
				scene.Content = ""
			}
			scenes = append(scenes, scene)
		}
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].OrderIndex < scenes[j].OrderIndex })
	return scenes, nil
}

// InsertPart inserts a part, rejecting order collisions among siblings
func (m *MockStoryStore) InsertPart(ctx context.Context, part *models.Part) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	if _, ok := m.stories[part.StoryID]; !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCodeStoryNotFound, "story not found: "+part.StoryID, nil)
	}
	for _, sibling := range m.parts {
		if sibling.StoryID == part.StoryID && sibling.OrderIndex == part.OrderIndex {
			return apperrors.NewConflictError(apperrors.ErrCodeOrderIndexConflict,
				"order index already taken among sibling parts", nil)
		}
	}

	m.parts[part.ID] = *part
	m.touchStoryLocked(part.StoryID)
	return nil
}

// InsertChapter inserts a chapter under a part or directly under a story
func (m *MockStoryStore) InsertChapter(ctx context.Context, chapter *models.Chapter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	if _, ok := m.stories[chapter.StoryID]; !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCodeStoryNotFound, "story not found: "+chapter.StoryID, nil)
	}
	if !chapter.IsStandalone() {
		part, ok := m.parts[chapter.PartID]
		if !ok {
			return apperrors.NewNotFoundError(apperrors.ErrCodePartNotFound, "part not found: "+chapter.PartID, nil)
		}
		if part.StoryID != chapter.StoryID {
			return apperrors.NewValidationError(apperrors.ErrCodeInvalidParent,
				"part belongs to a different story", nil)
		}
	}
	for _, sibling := range m.chapters {
		sameGroup := sibling.PartID == chapter.PartID &&
			(chapter.PartID != "" || sibling.StoryID == chapter.StoryID)
		if sameGroup && sibling.OrderIndex == chapter.OrderIndex {
			return apperrors.NewConflictError(apperrors.ErrCodeOrderIndexConflict,
				"order index already taken among sibling chapters", nil)
		}
	}

	m.chapters[chapter.ID] = *chapter
	m.touchStoryLocked(chapter.StoryID)
	return nil
}

// InsertScene inserts a scene under a chapter
func (m *MockStoryStore) InsertScene(ctx context.Context, scene *models.Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	chapter, ok := m.chapters[scene.ChapterID]
	if !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCodeChapterNotFound, "chapter not found: "+scene.ChapterID, nil)
	}
	for _, sibling := range m.scenes {
		if sibling.ChapterID == scene.ChapterID && sibling.OrderIndex == scene.OrderIndex {
			return apperrors.NewConflictError(apperrors.ErrCodeOrderIndexConflict,
				"order index already taken among sibling scenes", nil)
		}
	}

	m.scenes[scene.ID] = *scene
	m.touchStoryLocked(chapter.StoryID)
	return nil
}

// UpdatePart replaces a part row
func (m *MockStoryStore) UpdatePart(ctx context.Context, part *models.Part) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	if _, ok := m.parts[part.ID]; !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCodePartNotFound, "part not found: "+part.ID, nil)
	}
	m.parts[part.ID] = *part
	m.touchStoryLocked(part.StoryID)
	return nil
}

// UpdateChapter replaces a chapter row
func (m *MockStoryStore) UpdateChapter(ctx context.Context, chapter *models.Chapter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	if _, ok := m.chapters[chapter.ID]; !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCodeChapterNotFound, "chapter not found: "+chapter.ID, nil)
	}
	m.chapters[chapter.ID] = *chapter
	m.touchStoryLocked(chapter.StoryID)
	return nil
}

// UpdateScene replaces a scene row
func (m *MockStoryStore) UpdateScene(ctx context.Context, scene *models.Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	if _, ok := m.scenes[scene.ID]; !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCodeSceneNotFound, "scene not found: "+scene.ID, nil)
	}
	m.scenes[scene.ID] = *scene
	if chapter, ok := m.chapters[scene.ChapterID]; ok {
		m.touchStoryLocked(chapter.StoryID)
	}
	return nil
}

// DeletePart removes a part, rejecting parts that still hold chapters
func (m *MockStoryStore) DeletePart(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	part, ok := m.parts[id]
	if !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCodePartNotFound, "part not found: "+id, nil)
	}
	for _, chapter := range m.chapters {
		if chapter.PartID == id {
			return apperrors.NewConflictError(apperrors.ErrCodeHasChildren,
				"part still has chapters", nil)
		}
	}

	delete(m.parts, id)
	m.touchStoryLocked(part.StoryID)
	return nil
}

// DeleteChapter removes a chapter, rejecting chapters that still hold
// scenes
func (m *MockStoryStore) DeleteChapter(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	chapter, ok := m.chapters[id]
	if !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCodeChapterNotFound, "chapter not found: "+id, nil)
	}
	for _, scene := range m.scenes {
		if scene.ChapterID == id {
			return apperrors.NewConflictError(apperrors.ErrCodeHasChildren,
				"chapter still has scenes", nil)
		}
	}

	delete(m.chapters, id)
	m.touchStoryLocked(chapter.StoryID)
	return nil
}

// DeleteScene removes a scene
func (m *MockStoryStore) DeleteScene(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	scene, ok := m.scenes[id]
	if !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCodeSceneNotFound, "scene not found: "+id, nil)
	}

	delete(m.scenes, id)
	if chapter, ok := m.chapters[scene.ChapterID]; ok {
		m.touchStoryLocked(chapter.StoryID)
	}
	return nil
}

// Ping checks store connectivity
func (m *MockStoryStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// SeedStory inserts a story row directly, for test setup
func (m *MockStoryStore) SeedStory(story models.Story) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[story.ID] = story
}

// SeedPart inserts a part row directly, bypassing collision checks
func (m *MockStoryStore) SeedPart(part models.Part) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts[part.ID] = part
}

// SeedChapter inserts a chapter row directly, bypassing collision checks
func (m *MockStoryStore) SeedChapter(chapter models.Chapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chapters[chapter.ID] = chapter
}

// SeedScene inserts a scene row directly, bypassing collision checks
func (m *MockStoryStore) SeedScene(scene models.Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes[scene.ID] = scene
}

func (m *MockStoryStore) touchStoryLocked(storyID string) {
	if story, ok := m.stories[storyID]; ok {
		story.UpdatedAt = time.Now().UTC()
		m.stories[storyID] = story
	}
}
