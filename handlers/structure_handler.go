package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	apperrors "story-content-gateway/errors"
	"story-content-gateway/models"
	"story-content-gateway/services"
)

// StructureHandler handles structural writes against the story hierarchy.
// Every mutation requires the viewer to own the target story; ownership is
// resolved by walking the row's parent references up to the story.
type StructureHandler struct {
	relationships *services.RelationshipService
	store         services.StoryStore
}

// NewStructureHandler creates a new structure handler
func NewStructureHandler(relationships *services.RelationshipService, store services.StoryStore) *StructureHandler {
	return &StructureHandler{
		relationships: relationships,
		store:         store,
	}
}

// CreateStory handles POST /api/v1/stories
func (h *StructureHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFromRequest(r)
	if viewer.IsAnonymous() {
		writeAppErrorResponse(w, apperrors.NewAuthError(apperrors.ErrCodeAccessDenied,
			"authentication required", nil))
		return
	}

	var req models.CreateStoryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	story, err := h.relationships.CreateStory(r.Context(), viewer.UserID, req)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, story)
}

// SetPublishStatus handles PUT /api/v1/stories/{id}/publish-status
func (h *StructureHandler) SetPublishStatus(w http.ResponseWriter, r *http.Request) {
	storyID := mux.Vars(r)["id"]
	if !h.authorizeStory(w, r, storyID) {
		return
	}

	var req models.UpdatePublishStatusRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	story, err := h.relationships.SetPublishStatus(r.Context(), storyID, req.PublishStatus)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, story)
}

// AddPart handles POST /api/v1/stories/{id}/parts
func (h *StructureHandler) AddPart(w http.ResponseWriter, r *http.Request) {
	storyID := mux.Vars(r)["id"]
	if !h.authorizeStory(w, r, storyID) {
		return
	}

	var spec models.ChildSpec
	if !decodeJSONBody(w, r, &spec) {
		return
	}

	part, err := h.relationships.AddPart(r.Context(), storyID, spec)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, models.CreatedResponse{
		ID:         part.ID,
		OrderIndex: part.OrderIndex,
	})
}

// AddStandaloneChapter handles POST /api/v1/stories/{id}/chapters
func (h *StructureHandler) AddStandaloneChapter(w http.ResponseWriter, r *http.Request) {
	storyID := mux.Vars(r)["id"]
	if !h.authorizeStory(w, r, storyID) {
		return
	}

	var spec models.ChildSpec
	if !decodeJSONBody(w, r, &spec) {
		return
	}

	chapter, err := h.relationships.AddStandaloneChapter(r.Context(), storyID, spec)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, models.CreatedResponse{
		ID:         chapter.ID,
		OrderIndex: chapter.OrderIndex,
	})
}

// AddChapter handles POST /api/v1/parts/{id}/chapters
func (h *StructureHandler) AddChapter(w http.ResponseWriter, r *http.Request) {
	partID := mux.Vars(r)["id"]
	if !h.authorizePart(w, r, partID) {
		return
	}

	var spec models.ChildSpec
	if !decodeJSONBody(w, r, &spec) {
		return
	}

	chapter, err := h.relationships.AddChapterToPart(r.Context(), partID, spec)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, models.CreatedResponse{
		ID:         chapter.ID,
		OrderIndex: chapter.OrderIndex,
	})
}

// AddScene handles POST /api/v1/chapters/{id}/scenes
func (h *StructureHandler) AddScene(w http.ResponseWriter, r *http.Request) {
	chapterID := mux.Vars(r)["id"]
	if !h.authorizeChapter(w, r, chapterID) {
		return
	}

	var spec models.ChildSpec
	if !decodeJSONBody(w, r, &spec) {
		return
	}

	scene, err := h.relationships.AddScene(r.Context(), chapterID, spec)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, models.CreatedResponse{
		ID:         scene.ID,
		OrderIndex: scene.OrderIndex,
	})
}

// UpdateScene handles PUT /api/v1/scenes/{id}
func (h *StructureHandler) UpdateScene(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["id"]
	if !h.authorizeScene(w, r, sceneID) {
		return
	}

	var req models.UpdateSceneRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	scene, err := h.relationships.UpdateScene(r.Context(), sceneID, req)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, scene)
}

// RenamePart handles PUT /api/v1/parts/{id}/title
func (h *StructureHandler) RenamePart(w http.ResponseWriter, r *http.Request) {
	partID := mux.Vars(r)["id"]
	if !h.authorizePart(w, r, partID) {
		return
	}

	var req models.RenameRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	part, err := h.relationships.RenamePart(r.Context(), partID, req.Title)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, part)
}

// RenameChapter handles PUT /api/v1/chapters/{id}/title
func (h *StructureHandler) RenameChapter(w http.ResponseWriter, r *http.Request) {
	chapterID := mux.Vars(r)["id"]
	if !h.authorizeChapter(w, r, chapterID) {
		return
	}

	var req models.RenameRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	chapter, err := h.relationships.RenameChapter(r.Context(), chapterID, req.Title)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, chapter)
}

// DeletePart handles DELETE /api/v1/parts/{id}
func (h *StructureHandler) DeletePart(w http.ResponseWriter, r *http.Request) {
	partID := mux.Vars(r)["id"]
	if !h.authorizePart(w, r, partID) {
		return
	}

	if err := h.relationships.RemovePart(r.Context(), partID); err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteChapter handles DELETE /api/v1/chapters/{id}
func (h *StructureHandler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	chapterID := mux.Vars(r)["id"]
	if !h.authorizeChapter(w, r, chapterID) {
		return
	}

	if err := h.relationships.RemoveChapter(r.Context(), chapterID); err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteScene handles DELETE /api/v1/scenes/{id}
func (h *StructureHandler) DeleteScene(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["id"]
	if !h.authorizeScene(w, r, sceneID) {
		return
	}

	if err := h.relationships.RemoveScene(r.Context(), sceneID); err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// authorizeStory checks that the viewer owns the story, writing the error
// response itself on failure
func (h *StructureHandler) authorizeStory(w http.ResponseWriter, r *http.Request, storyID string) bool {
	if storyID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "story ID is required", "")
		return false
	}

	story, err := h.store.GetStory(r.Context(), storyID)
	if err != nil {
		writeAppErrorResponse(w, err)
		return false
	}

	return h.requireOwner(w, r, story.AuthorID)
}

func (h *StructureHandler) authorizePart(w http.ResponseWriter, r *http.Request, partID string) bool {
	if partID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "part ID is required", "")
		return false
	}

	part, err := h.store.GetPart(r.Context(), partID)
	if err != nil {
		writeAppErrorResponse(w, err)
		return false
	}

	return h.authorizeStory(w, r, part.StoryID)
}

func (h *StructureHandler) authorizeChapter(w http.ResponseWriter, r *http.Request, chapterID string) bool {
	if chapterID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "chapter ID is required", "")
		return false
	}

	chapter, err := h.store.GetChapter(r.Context(), chapterID)
	if err != nil {
		writeAppErrorResponse(w, err)
		return false
	}

	return h.authorizeStory(w, r, chapter.StoryID)
}

func (h *StructureHandler) authorizeScene(w http.ResponseWriter, r *http.Request, sceneID string) bool {
	if sceneID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "scene ID is required", "")
		return false
	}

	scene, err := h.store.GetScene(r.Context(), sceneID)
	if err != nil {
		writeAppErrorResponse(w, err)
		return false
	}

	return h.authorizeChapter(w, r, scene.ChapterID)
}

func (h *StructureHandler) requireOwner(w http.ResponseWriter, r *http.Request, authorID string) bool {
	viewer := viewerFromRequest(r)
	if viewer.IsAnonymous() {
		writeAppErrorResponse(w, apperrors.NewAuthError(apperrors.ErrCodeAccessDenied,
			"authentication required", nil))
		return false
	}
	if viewer.UserID != authorID {
		writeAppErrorResponse(w, apperrors.NewForbiddenError(apperrors.ErrCodeAccessDenied,
			"only the story author may modify its structure", nil))
		return false
	}
	return true
}
