package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "story-content-gateway/errors"
	"story-content-gateway/models"
)

// RelationshipService performs every structural mutation of the content
// tree. It is the only writer of part/chapter/scene rows, so the parent's
// derived child list and the child rows can never drift apart.
//
// Order-index policy: omitted index -> max(siblings)+1; an explicit index
// that collides with a sibling fails with Conflict and changes nothing.
// Implicitly assigned indexes retry on Conflict because a concurrent
// sibling insert may have claimed the same index.
type RelationshipService struct {
	store       StoryStore
	invalidator CacheInvalidator
	logger      Logger
	retryConfig *apperrors.RetryConfig
}

// NewRelationshipService creates a new relationship service
func NewRelationshipService(store StoryStore, invalidator CacheInvalidator, logger Logger) *RelationshipService {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	return &RelationshipService{
		store:       store,
		invalidator: invalidator,
		logger:      logger,
		retryConfig: apperrors.OrderAssignmentRetryConfig(),
	}
}

// CreateStory creates a new story root owned by the given author
func (s *RelationshipService) CreateStory(ctx context.Context, authorID string, req models.CreateStoryRequest) (*models.Story, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeMissingField, "title is required", nil)
	}
	if authorID == "" {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeMissingField, "author is required", nil)
	}

	now := time.Now().UTC()
	story := &models.Story{
		ID:            uuid.NewString(),
		AuthorID:      authorID,
		Title:         req.Title,
		Description:   req.Description,
		PublishStatus: models.PublishStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateStory(ctx, story); err != nil {
		return nil, err
	}

	s.logger.Info("story created",
		String("story_id", story.ID),
		String("author_id", authorID))

	return story, nil
}

// AddPart adds a part under a story
func (s *RelationshipService) AddPart(ctx context.Context, storyID string, spec models.ChildSpec) (*models.Part, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	if _, err := s.store.GetStory(ctx, storyID); err != nil {
		return nil, err
	}

	insert := func() (*models.Part, error) {
		siblings, err := s.store.ListParts(ctx, storyID)
		if err != nil {
			return nil, err
		}

		orderIndex, err := resolveOrderIndex(spec.OrderIndex, partOrderIndexes(siblings))
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		part := &models.Part{
			ID:         uuid.NewString(),
			StoryID:    storyID,
			Title:      spec.Title,
			OrderIndex: orderIndex,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := s.store.InsertPart(ctx, part); err != nil {
			return nil, err
		}
		return part, nil
	}

	part, err := executeInsert(ctx, s.retryConfig, spec.OrderIndex == nil, insert)
	if err != nil {
		return nil, err
	}

	s.invalidateStory(ctx, storyID)
	s.logger.Info("part added",
		String("story_id", storyID),
		String("part_id", part.ID),
		Int("order_index", part.OrderIndex))

	return part, nil
}

// AddChapterToPart adds a chapter under a part
func (s *RelationshipService) AddChapterToPart(ctx context.Context, partID string, spec models.ChildSpec) (*models.Chapter, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	part, err := s.store.GetPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	insert := func() (*models.Chapter, error) {
		siblings, err := s.store.ListChaptersByPart(ctx, partID)
		if err != nil {
			return nil, err
		}
		return s.insertChapter(ctx, part.StoryID, partID, spec, siblings)
	}

	chapter, err := executeInsert(ctx, s.retryConfig, spec.OrderIndex == nil, insert)
	if err != nil {
		return nil, err
	}

	s.invalidateStory(ctx, part.StoryID)
	s.logger.Info("chapter added",
		String("story_id", part.StoryID),
		String("part_id", partID),
		String("chapter_id", chapter.ID),
		Int("order_index", chapter.OrderIndex))

	return chapter, nil
}

// AddStandaloneChapter adds a legacy chapter directly under a story
func (s *RelationshipService) AddStandaloneChapter(ctx context.Context, storyID string, spec models.ChildSpec) (*models.Chapter, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	if _, err := s.store.GetStory(ctx, storyID); err != nil {
		return nil, err
	}

	insert := func() (*models.Chapter, error) {
		siblings, err := s.store.ListStandaloneChapters(ctx, storyID)
		if err != nil {
			return nil, err
		}
		return s.insertChapter(ctx, storyID, "", spec, siblings)
	}

	chapter, err := executeInsert(ctx, s.retryConfig, spec.OrderIndex == nil, insert)
	if err != nil {
		return nil, err
	}

	s.invalidateStory(ctx, storyID)
	s.logger.Info("standalone chapter added",
		String("story_id", storyID),
		String("chapter_id", chapter.ID),
		Int("order_index", chapter.OrderIndex))

	return chapter, nil
}

// AddScene adds a scene under a chapter
func (s *RelationshipService) AddScene(ctx context.Context, chapterID string, spec models.ChildSpec) (*models.Scene, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	chapter, err := s.store.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	insert := func() (*models.Scene, error) {
		siblings, err := s.store.ListScenes(ctx, chapterID, false)
		if err != nil {
			return nil, err
		}

		orderIndex, err := resolveOrderIndex(spec.OrderIndex, sceneOrderIndexes(siblings))
		if err != nil {
			return nil, err
		}

		visibility := models.Visibility(spec.Visibility)
		if visibility == "" {
			visibility = models.VisibilityPrivate
		}

		now := time.Now().UTC()
		scene := &models.Scene{
			ID:         uuid.NewString(),
			ChapterID:  chapterID,
			Title:      spec.Title,
			Content:    spec.Content,
			Visibility: visibility,
			OrderIndex: orderIndex,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := s.store.InsertScene(ctx, scene); err != nil {
			return nil, err
		}
		return scene, nil
	}

	scene, err := executeInsert(ctx, s.retryConfig, spec.OrderIndex == nil, insert)
	if err != nil {
		return nil, err
	}

	s.invalidateStory(ctx, chapter.StoryID)
	s.logger.Info("scene added",
		String("story_id", chapter.StoryID),
		String("chapter_id", chapterID),
		String("scene_id", scene.ID),
		Int("order_index", scene.OrderIndex))

	return scene, nil
}

// RemovePart removes a part. Fails with Conflict while the part still
// has chapters.
func (s *RelationshipService) RemovePart(ctx context.Context, partID string) error {
	part, err := s.store.GetPart(ctx, partID)
	if err != nil {
		return err
	}

	if err := s.store.DeletePart(ctx, partID); err != nil {
		return err
	}

	s.invalidateStory(ctx, part.StoryID)
	s.logger.Info("part removed",
		String("story_id", part.StoryID),
		String("part_id", partID))

	return nil
}

// RemoveChapter removes a chapter. Fails with Conflict while the chapter
// still has scenes.
func (s *RelationshipService) RemoveChapter(ctx context.Context, chapterID string) error {
	chapter, err := s.store.GetChapter(ctx, chapterID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteChapter(ctx, chapterID); err != nil {
		return err
	}

	s.invalidateStory(ctx, chapter.StoryID)
	s.logger.Info("chapter removed",
		String("story_id", chapter.StoryID),
		String("chapter_id", chapterID))

	return nil
}

// RemoveScene removes a scene
func (s *RelationshipService) RemoveScene(ctx context.Context, sceneID string) error {
	scene, err := s.store.GetScene(ctx, sceneID)
	if err != nil {
		return err
	}

	chapter, err := s.store.GetChapter(ctx, scene.ChapterID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteScene(ctx, sceneID); err != nil {
		return err
	}

	s.invalidateStory(ctx, chapter.StoryID)
	s.logger.Info("scene removed",
		String("story_id", chapter.StoryID),
		String("scene_id", sceneID))

	return nil
}

// UpdateScene applies a content update to a scene
func (s *RelationshipService) UpdateScene(ctx context.Context, sceneID string, req models.UpdateSceneRequest) (*models.Scene, error) {
	scene, err := s.store.GetScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}

	chapter, err := s.store.GetChapter(ctx, scene.ChapterID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, apperrors.NewValidationError(apperrors.ErrCodeMissingField, "title cannot be empty", nil)
		}
		scene.Title = *req.Title
	}
	if req.Content != nil {
		scene.Content = *req.Content
	}
	if req.Visibility != nil {
		scene.Visibility = models.Visibility(*req.Visibility)
	}
	scene.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateScene(ctx, scene); err != nil {
		return nil, err
	}

	s.invalidateStory(ctx, chapter.StoryID)
	s.logger.Info("scene updated",
		String("story_id", chapter.StoryID),
		String("scene_id", sceneID))

	return scene, nil
}

// RenamePart updates a part's title
func (s *RelationshipService) RenamePart(ctx context.Context, partID, title string) (*models.Part, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeMissingField, "title is required", nil)
	}

	part, err := s.store.GetPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	part.Title = title
	part.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdatePart(ctx, part); err != nil {
		return nil, err
	}

	s.invalidateStory(ctx, part.StoryID)
	return part, nil
}

// RenameChapter updates a chapter's title
func (s *RelationshipService) RenameChapter(ctx context.Context, chapterID, title string) (*models.Chapter, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeMissingField, "title is required", nil)
	}

	chapter, err := s.store.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	chapter.Title = title
	chapter.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateChapter(ctx, chapter); err != nil {
		return nil, err
	}

	s.invalidateStory(ctx, chapter.StoryID)
	return chapter, nil
}

// SetPublishStatus changes a story's publication state
func (s *RelationshipService) SetPublishStatus(ctx context.Context, storyID string, status models.PublishStatus) (*models.Story, error) {
	if status != models.PublishStatusDraft && status != models.PublishStatusPublished {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeInvalidInput, "unknown publish status", nil)
	}

	story, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	story.PublishStatus = status
	story.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateStory(ctx, story); err != nil {
		return nil, err
	}

	s.invalidateStory(ctx, storyID)
	s.logger.Info("publish status changed",
		String("story_id", storyID),
		String("status", string(status)))

	return story, nil
}

// insertChapter builds and persists a chapter row under either a part or
// directly under a story
func (s *RelationshipService) insertChapter(ctx context.Context, storyID, partID string, spec models.ChildSpec, siblings []models.Chapter) (*models.Chapter, error) {
	orderIndex, err := resolveOrderIndex(spec.OrderIndex, chapterOrderIndexes(siblings))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	chapter := &models.Chapter{
		ID:         uuid.NewString(),
		StoryID:    storyID,
		PartID:     partID,
		Title:      spec.Title,
		Summary:    spec.Summary,
		OrderIndex: orderIndex,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.InsertChapter(ctx, chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

// executeInsert runs an insert closure, retrying on Conflict only when the
// order index was assigned implicitly
func executeInsert[T any](ctx context.Context, retryConfig *apperrors.RetryConfig, implicit bool, insert func() (T, error)) (T, error) {
	if implicit {
		return apperrors.ExecuteWithResult(ctx, retryConfig, insert)
	}
	return insert()
}

func (s *RelationshipService) invalidateStory(ctx context.Context, storyID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateStory(ctx, storyID)
	}
}

// validateSpec checks the common child spec fields
func validateSpec(spec models.ChildSpec) error {
	if strings.TrimSpace(spec.Title) == "" {
		return apperrors.NewValidationError(apperrors.ErrCodeMissingField, "title is required", nil)
	}
	if spec.Visibility != "" &&
		spec.Visibility != string(models.VisibilityPrivate) &&
		spec.Visibility != string(models.VisibilityPublic) {
		return apperrors.NewValidationError(apperrors.ErrCodeInvalidInput, "unknown visibility", nil)
	}
	return nil
}

// resolveOrderIndex applies the order-index policy against current siblings
func resolveOrderIndex(requested *int, taken []int) (int, error) {
	if requested == nil {
		next := 1
		for _, idx := range taken {
			if idx >= next {
				next = idx + 1
			}
		}
		return next, nil
	}

	for _, idx := range taken {
		if idx == *requested {
			return 0, apperrors.NewConflictError(apperrors.ErrCodeOrderIndexConflict,
				"order index already used by a sibling", nil)
		}
	}
	return *requested, nil
}

func partOrderIndexes(parts []models.Part) []int {
	out := make([]int, len(parts))
	for i, p := range parts {
		out[i] = p.OrderIndex
	}
	return out
}

func chapterOrderIndexes(chapters []models.Chapter) []int {
	out := make([]int, len(chapters))
	for i, c := range chapters {
		out[i] = c.OrderIndex
	}
	return out
}

func sceneOrderIndexes(scenes []models.Scene) []int {
	out := make([]int, len(scenes))
	for i, sc := range scenes {
		out[i] = sc.OrderIndex
	}
	return out
}
