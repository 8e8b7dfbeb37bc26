package models

// CreateStoryRequest is the payload for creating a story
type CreateStoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ChildSpec describes a new child entity for a structural add. OrderIndex
// is optional; when nil the next free index after the current siblings is
// assigned. An explicit index that collides with a sibling is rejected.
type ChildSpec struct {
	Title      string `json:"title"`
	Summary    string `json:"summary,omitempty"`
	Content    string `json:"content,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	OrderIndex *int   `json:"order_index,omitempty"`
}

// UpdateSceneRequest is the payload for a scene content update
type UpdateSceneRequest struct {
	Title      *string `json:"title,omitempty"`
	Content    *string `json:"content,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
}

// RenameRequest is the payload for a title update on a story, part or chapter
type RenameRequest struct {
	Title string `json:"title"`
}

// UpdatePublishStatusRequest changes a story's publication state
type UpdatePublishStatusRequest struct {
	PublishStatus PublishStatus `json:"publish_status"`
}
