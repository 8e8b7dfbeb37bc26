package services

import (
	"context"
	"fmt"
	"time"

	apperrors "story-content-gateway/errors"
	"story-content-gateway/models"
)

// TreeService assembles the full nested tree for a story.
//
// Merge rule for the top level: parts come first, ordered by their own
// order index, followed by legacy standalone chapters ordered by theirs.
// The rule is fixed so the same data always yields the same sequence.
type TreeService struct {
	store      StoryStore
	authorizer Authorizer
	logger     Logger
}

// NewTreeService creates a new tree service
func NewTreeService(store StoryStore, authorizer Authorizer, logger Logger) *TreeService {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if authorizer == nil {
		authorizer = NewDefaultAuthorizer()
	}

	return &TreeService{
		store:      store,
		authorizer: authorizer,
		logger:     logger,
	}
}

// LoadTree implements TreeLoader. The access check runs against the story
// row alone, before any further reads; a denied viewer never triggers a
// tree assembly.
func (s *TreeService) LoadTree(ctx context.Context, storyID string, mode models.TreeMode, viewer Viewer) (*models.StoryTree, error) {
	if !mode.Valid() {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeInvalidMode,
			fmt.Sprintf("unknown tree mode %q", mode), nil)
	}

	story, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	if !s.authorizer.CanView(story, viewer) {
		return nil, apperrors.NewForbiddenError(apperrors.ErrCodeAccessDenied,
			"viewer is not allowed to read this story", nil)
	}

	start := time.Now()

	tree := &models.StoryTree{
		ID:            story.ID,
		AuthorID:      story.AuthorID,
		Title:         story.Title,
		Description:   story.Description,
		PublishStatus: story.PublishStatus,
		UpdatedAt:     story.UpdatedAt,
		Mode:          mode,
		Parts:         []models.PartNode{},
		Chapters:      []models.ChapterNode{},
		PartIDs:       []string{},
		ChapterIDs:    []string{},
	}

	parts, err := s.store.ListParts(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if err := checkSiblingOrder("story", storyID, partIndexPairs(parts)); err != nil {
		return nil, err
	}

	for _, part := range parts {
		node, err := s.loadPartNode(ctx, part, mode)
		if err != nil {
			return nil, err
		}
		tree.Parts = append(tree.Parts, node)
		tree.PartIDs = append(tree.PartIDs, part.ID)
	}

	standalone, err := s.store.ListStandaloneChapters(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if err := checkSiblingOrder("story", storyID, chapterIndexPairs(standalone)); err != nil {
		return nil, err
	}

	for _, chapter := range standalone {
		node, err := s.loadChapterNode(ctx, chapter, mode)
		if err != nil {
			return nil, err
		}
		tree.Chapters = append(tree.Chapters, node)
		tree.ChapterIDs = append(tree.ChapterIDs, chapter.ID)
	}

	s.logger.Debug("tree assembled",
		String("story_id", storyID),
		String("mode", string(mode)),
		Int("parts", len(tree.Parts)),
		Int("standalone_chapters", len(tree.Chapters)),
		Duration("duration", time.Since(start)))

	return tree, nil
}

// loadPartNode loads a part's chapters and their scenes
func (s *TreeService) loadPartNode(ctx context.Context, part models.Part, mode models.TreeMode) (models.PartNode, error) {
	node := models.PartNode{
		Part:       part,
		Chapters:   []models.ChapterNode{},
		ChapterIDs: []string{},
	}

	chapters, err := s.store.ListChaptersByPart(ctx, part.ID)
	if err != nil {
		return node, err
	}
	if err := checkSiblingOrder("part", part.ID, chapterIndexPairs(chapters)); err != nil {
		return node, err
	}

	for _, chapter := range chapters {
		chapterNode, err := s.loadChapterNode(ctx, chapter, mode)
		if err != nil {
			return node, err
		}
		node.Chapters = append(node.Chapters, chapterNode)
		node.ChapterIDs = append(node.ChapterIDs, chapter.ID)
	}

	return node, nil
}

// loadChapterNode loads a chapter's scenes. Scene content is only fetched
// in full mode; structure mode exists to keep the initial payload small.
func (s *TreeService) loadChapterNode(ctx context.Context, chapter models.Chapter, mode models.TreeMode) (models.ChapterNode, error) {
	node := models.ChapterNode{
		Chapter:  chapter,
		Scenes:   []models.SceneNode{},
		SceneIDs: []string{},
	}

	scenes, err := s.store.ListScenes(ctx, chapter.ID, mode == models.TreeModeFull)
	if err != nil {
		return node, err
	}
	if err := checkSiblingOrder("chapter", chapter.ID, sceneIndexPairs(scenes)); err != nil {
		return node, err
	}

	for _, scene := range scenes {
		if mode != models.TreeModeFull {
			scene.Content = ""
		}
		node.Scenes = append(node.Scenes, models.SceneNode{Scene: scene})
		node.SceneIDs = append(node.SceneIDs, scene.ID)
	}

	return node, nil
}

type indexPair struct {
	id    string
	index int
}

// checkSiblingOrder rejects duplicate order indexes among siblings. A
// duplicate means the stored rows disagree with the ordering invariant;
// the subtree fails instead of guessing a repair.
func checkSiblingOrder(parentKind, parentID string, pairs []indexPair) error {
	seen := make(map[int]string, len(pairs))
	for _, p := range pairs {
		if other, dup := seen[p.index]; dup {
			return apperrors.NewIntegrityError(apperrors.ErrCodeDuplicateOrder,
				fmt.Sprintf("%s %s has siblings %s and %s sharing order index %d",
					parentKind, parentID, other, p.id, p.index), nil)
		}
		seen[p.index] = p.id
	}
	return nil
}

func partIndexPairs(parts []models.Part) []indexPair {
	out := make([]indexPair, len(parts))
	for i, p := range parts {
		out[i] = indexPair{id: p.ID, index: p.OrderIndex}
	}
	return out
}

func chapterIndexPairs(chapters []models.Chapter) []indexPair {
	out := make([]indexPair, len(chapters))
	for i, c := range chapters {
		out[i] = indexPair{id: c.ID, index: c.OrderIndex}
	}
	return out
}

func sceneIndexPairs(scenes []models.Scene) []indexPair {
	out := make([]indexPair, len(scenes))
	for i, sc := range scenes {
		out[i] = indexPair{id: sc.ID, index: sc.OrderIndex}
	}
	return out
}
