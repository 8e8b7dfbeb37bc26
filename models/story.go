package models

import "time"

// PublishStatus represents the publication state of a story
type PublishStatus string

const (
	PublishStatusDraft     PublishStatus = "draft"
	PublishStatusPublished PublishStatus = "published"
)

// Visibility represents the visibility of a scene
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Story is the root of the content tree
type Story struct {
	ID            string        `json:"id"`
	AuthorID      string        `json:"author_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	PublishStatus PublishStatus `json:"publish_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsPublished reports whether the story is publicly published
func (s *Story) IsPublished() bool {
	return s.PublishStatus == PublishStatusPublished
}

// Part groups chapters under a story
type Part struct {
	ID         string    `json:"id"`
	StoryID    string    `json:"story_id"`
	Title      string    `json:"title"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Chapter groups scenes. A chapter normally sits under a part; legacy
// chapters attach directly to the story and carry an empty PartID.
type Chapter struct {
	ID         string    `json:"id"`
	StoryID    string    `json:"story_id"`
	PartID     string    `json:"part_id,omitempty"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary,omitempty"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsStandalone reports whether the chapter attaches directly to its story
func (c *Chapter) IsStandalone() bool {
	return c.PartID == ""
}

// Scene is a leaf holding prose content
type Scene struct {
	ID         string     `json:"id"`
	ChapterID  string     `json:"chapter_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content,omitempty"`
	Visibility Visibility `json:"visibility"`
	OrderIndex int        `json:"order_index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
