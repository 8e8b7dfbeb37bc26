package services

import "story-content-gateway/models"

// Viewer identifies the requesting user. Authentication itself happens
// upstream; the gateway only consumes the resulting identity.
type Viewer struct {
	UserID string
	Role   string
}

// IsAnonymous reports whether the viewer carries no identity
func (v Viewer) IsAnonymous() bool {
	return v.UserID == ""
}

// Authorizer decides content access for a viewer
type Authorizer interface {
	// CanView allows the story's author always, and anyone else only
	// when the story is publicly published.
	CanView(story *models.Story, viewer Viewer) bool
	// CanAdminister gates privileged operations such as clearing the cache.
	CanAdminister(viewer Viewer) bool
}

// RoleAdmin is the role required for privileged operations
const RoleAdmin = "admin"

// DefaultAuthorizer implements the owner-or-published policy
type DefaultAuthorizer struct{}

// NewDefaultAuthorizer creates the default authorizer
func NewDefaultAuthorizer() *DefaultAuthorizer {
	return &DefaultAuthorizer{}
}

// CanView implements Authorizer
func (a *DefaultAuthorizer) CanView(story *models.Story, viewer Viewer) bool {
	if story == nil {
		return false
	}
	if viewer.UserID != "" && viewer.UserID == story.AuthorID {
		return true
	}
	return story.IsPublished()
}

// CanAdminister implements Authorizer
func (a *DefaultAuthorizer) CanAdminister(viewer Viewer) bool {
	return viewer.Role == RoleAdmin
}
