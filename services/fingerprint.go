package services

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"sort"
	"time"

	"story-content-gateway/models"
)

// FingerprintService computes a deterministic content hash over an
// assembled tree, used as the ETag for conditional responses.
//
// Canonical form: every entity contributes its id, title/content fields,
// visibility and updated timestamp (UTC, RFC3339Nano); child collections
// are serialized in ascending order-index order. The collections are
// re-sorted inside the generator, so two trees with identical content but
// different incidental slice order hash identically. Nothing about the
// process, wall clock or insertion order leaks into the hash.
type FingerprintService struct{}

// NewFingerprintService creates a new fingerprint service
func NewFingerprintService() *FingerprintService {
	return &FingerprintService{}
}

// Fingerprint returns the hex-encoded content hash of a tree
func (f *FingerprintService) Fingerprint(tree *models.StoryTree) string {
	if tree == nil {
		return ""
	}

	h := sha256.New()
	writeField(h, "story", tree.ID, tree.Title, tree.Description,
		string(tree.PublishStatus), canonicalTime(tree.UpdatedAt))

	parts := make([]models.PartNode, len(tree.Parts))
	copy(parts, tree.Parts)
	sort.Slice(parts, func(i, j int) bool { return parts[i].OrderIndex < parts[j].OrderIndex })
	for _, part := range parts {
		f.hashPart(h, part)
	}

	chapters := make([]models.ChapterNode, len(tree.Chapters))
	copy(chapters, tree.Chapters)
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].OrderIndex < chapters[j].OrderIndex })
	for _, chapter := range chapters {
		f.hashChapter(h, chapter)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

func (f *FingerprintService) hashPart(h hash.Hash, part models.PartNode) {
	writeField(h, "part", part.ID, part.Title,
		fmt.Sprintf("%d", part.OrderIndex), canonicalTime(part.UpdatedAt))

	chapters := make([]models.ChapterNode, len(part.Chapters))
	copy(chapters, part.Chapters)
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].OrderIndex < chapters[j].OrderIndex })
	for _, chapter := range chapters {
		f.hashChapter(h, chapter)
	}
}

func (f *FingerprintService) hashChapter(h hash.Hash, chapter models.ChapterNode) {
	writeField(h, "chapter", chapter.ID, chapter.Title, chapter.Summary,
		fmt.Sprintf("%d", chapter.OrderIndex), canonicalTime(chapter.UpdatedAt))

	scenes := make([]models.SceneNode, len(chapter.Scenes))
	copy(scenes, chapter.Scenes)
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].OrderIndex < scenes[j].OrderIndex })
	for _, scene := range scenes {
		writeField(h, "scene", scene.ID, scene.Title, scene.Content,
			string(scene.Visibility), fmt.Sprintf("%d", scene.OrderIndex),
			canonicalTime(scene.UpdatedAt))
	}
}

// writeField writes length-prefixed fields so adjacent values can never
// run together and collide
func writeField(w io.Writer, fields ...string) {
	for _, field := range fields {
		fmt.Fprintf(w, "%d:%s;", len(field), field)
	}
	io.WriteString(w, "\n")
}

func canonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
