package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"story-content-gateway/models"
	"story-content-gateway/services"
)

// TreeHandler serves assembled story trees with conditional request
// support. The tree fingerprint doubles as the ETag, so clients holding a
// current tree revalidate with a 304 instead of a full payload.
type TreeHandler struct {
	cache       *services.TreeCache
	fingerprint *services.FingerprintService

	httpMaxAge time.Duration
	httpSWR    time.Duration
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(cache *services.TreeCache, fingerprint *services.FingerprintService, httpMaxAge, httpSWR time.Duration) *TreeHandler {
	return &TreeHandler{
		cache:       cache,
		fingerprint: fingerprint,
		httpMaxAge:  httpMaxAge,
		httpSWR:     httpSWR,
	}
}

// GetTree handles GET /api/v1/stories/{id}/tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	storyID := vars["id"]

	if storyID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "story ID is required", "")
		return
	}

	mode := models.TreeMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = models.TreeModeFull
	}

	viewer := viewerFromRequest(r)

	tree, err := h.cache.GetOrLoad(r.Context(), storyID, mode, viewer)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	etag := fmt.Sprintf("%q", h.fingerprint.Fingerprint(tree))
	w.Header().Set("ETag", etag)
	h.setCacheControl(w, tree)

	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.TreeResponse{
		Tree:        tree,
		Fingerprint: strings.Trim(etag, `"`),
	})
}

// setCacheControl emits directives by visibility class. Private and draft
// trees may sit in the server-side cache, but shared HTTP caches must
// never hold them.
func (h *TreeHandler) setCacheControl(w http.ResponseWriter, tree *models.StoryTree) {
	if tree.IsPublished() {
		w.Header().Set("Cache-Control", fmt.Sprintf(
			"public, max-age=%d, stale-while-revalidate=%d",
			int(h.httpMaxAge.Seconds()), int(h.httpSWR.Seconds())))
		return
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
}

// matchesETag implements If-None-Match comparison, including the * form
// and comma-separated candidate lists
func matchesETag(headerValue, etag string) bool {
	if headerValue == "" {
		return false
	}
	if headerValue == "*" {
		return true
	}
	for _, candidate := range strings.Split(headerValue, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
