package models

import "time"

// TreeMode selects how much of the tree is loaded
type TreeMode string

const (
	// TreeModeStructure loads ids, titles and ordering without scene prose
	TreeModeStructure TreeMode = "structure"
	// TreeModeFull loads the tree including scene content
	TreeModeFull TreeMode = "full"
)

// Valid reports whether the mode is one of the supported values
func (m TreeMode) Valid() bool {
	return m == TreeModeStructure || m == TreeModeFull
}

// StoryTree is the assembled nested structure for a story.
//
// The ordered child-id lists (PartIDs, ChapterIDs, SceneIDs) are a derived
// projection rebuilt from child rows at load time; the child row's parent
// reference is the canonical relationship. Nothing hand-maintains these
// arrays in storage.
type StoryTree struct {
	ID            string        `json:"id"`
	AuthorID      string        `json:"author_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	PublishStatus PublishStatus `json:"publish_status"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Mode TreeMode `json:"mode"`

	// Parts come first in the merged top-level order, each sorted by its
	// own order index; legacy standalone chapters follow, sorted by theirs.
	Parts      []PartNode    `json:"parts"`
	Chapters   []ChapterNode `json:"chapters"`
	PartIDs    []string      `json:"part_ids"`
	ChapterIDs []string      `json:"chapter_ids"`
}

// IsPublished reports whether the tree's story is publicly published
func (t *StoryTree) IsPublished() bool {
	return t.PublishStatus == PublishStatusPublished
}

// PartNode is a part with its nested chapters
type PartNode struct {
	Part
	Chapters   []ChapterNode `json:"chapters"`
	ChapterIDs []string      `json:"chapter_ids"`
}

// ChapterNode is a chapter with its nested scenes
type ChapterNode struct {
	Chapter
	Scenes   []SceneNode `json:"scenes"`
	SceneIDs []string    `json:"scene_ids"`
}

// SceneNode is a scene leaf; Content is empty in structure mode
type SceneNode struct {
	Scene
}
