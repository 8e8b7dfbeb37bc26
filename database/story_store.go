package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "story-content-gateway/errors"
	"story-content-gateway/models"
)

// PostgresStoryStore persists the story hierarchy. Each child row carries
// its parent reference; sibling order lives in the order_index column with
// a partial unique constraint per sibling group, so a collision is
// impossible to commit even under races.
//
// Structural writes run in a transaction that locks the parent row FOR
// UPDATE before touching siblings. That serializes writers under the same
// parent while leaving writes to other parents fully concurrent.
type PostgresStoryStore struct {
	db *PostgresService
}

// NewPostgresStoryStore creates a story store backed by PostgreSQL
func NewPostgresStoryStore(db *PostgresService) *PostgresStoryStore {
	return &PostgresStoryStore{db: db}
}

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// GetStory retrieves a story by its ID
func (r *PostgresStoryStore) GetStory(ctx context.Context, id string) (*models.Story, error) {
	query := `
		SELECT id, author_id, title, description, publish_status, created_at, updated_at
		FROM stories
		WHERE id = $1
	`

	var story models.Story
	err := r.db.QueryRow(ctx, query, id).Scan(
		&story.ID,
		&story.AuthorID,
		&story.Title,
		&story.Description,
		&story.PublishStatus,
		&story.CreatedAt,
		&story.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCodeStoryNotFound,
			fmt.Sprintf("story not found: %s", id), nil)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to query story", err)
	}

	return &story, nil
}

// CreateStory inserts a new story
func (r *PostgresStoryStore) CreateStory(ctx context.Context, story *models.Story) error {
	query := `
		INSERT INTO stories (id, author_id, title, description, publish_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now().UTC()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = now

	_, err := r.db.Exec(ctx, query,
		story.ID,
		story.AuthorID,
		story.Title,
		story.Description,
		story.PublishStatus,
		story.CreatedAt,
		story.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(apperrors.ErrCodeInvalidInput,
				"story id already exists", err)
		}
		return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to insert story", err)
	}

	return nil
}

// UpdateStory updates a story's own fields
func (r *PostgresStoryStore) UpdateStory(ctx context.Context, story *models.Story) error {
	query := `
		UPDATE stories
		SET title = $2, description = $3, publish_status = $4, updated_at = $5
		WHERE id = $1
	`

	story.UpdatedAt = time.Now().UTC()

	tag, err := r.db.Exec(ctx, query,
		story.ID,
		story.Title,
		story.Description,
		story.PublishStatus,
		story.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to update story", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(apperrors.ErrCodeStoryNotFound,
			fmt.Sprintf("story not found: %s", story.ID), nil)
	}

	return nil
}

// GetPart retrieves a part by its ID
func (r *PostgresStoryStore) GetPart(ctx context.Context, id string) (*models.Part, error) {
	query := `
		SELECT id, story_id, title, order_index, created_at, updated_at
		FROM parts
		WHERE id = $1
	`

	var part models.Part
	err := r.db.QueryRow(ctx, query, id).Scan(
		&part.ID,
		&part.StoryID,
		&part.Title,
		&part.OrderIndex,
		&part.CreatedAt,
		&part.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCodePartNotFound,
			fmt.Sprintf("part not found: %s", id), nil)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to query part", err)
	}

	return &part, nil
}

// GetChapter retrieves a chapter by its ID
func (r *PostgresStoryStore) GetChapter(ctx context.Context, id string) (*models.Chapter, error) {
	query := `
		SELECT id, story_id, part_id, title, summary, order_index, created_at, updated_at
		FROM chapters
		WHERE id = $1
	`

	var chapter models.Chapter
	var partID *string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&chapter.ID,
		&chapter.StoryID,
		&partID,
		&chapter.Title,
		&chapter.Summary,
		&chapter.OrderIndex,
		&chapter.CreatedAt,
		&chapter.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCodeChapterNotFound,
			fmt.Sprintf("chapter not found: %s", id), nil)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to query chapter", err)
	}

	if partID != nil {
		chapter.PartID = *partID
	}
	return &chapter, nil
}

// GetScene retrieves a scene by its ID
func (r *PostgresStoryStore) GetScene(ctx context.Context, id string) (*models.Scene, error) {
	query := `
		SELECT id, chapter_id, title, content, visibility, order_index, created_at, updated_at
		FROM scenes
		WHERE id = $1
	`

	var scene models.Scene
	err := r.db.QueryRow(ctx, query, id).Scan(
		&scene.ID,
		&scene.ChapterID,
		&scene.Title,
		&scene.Content,
		&scene.Visibility,
		&scene.OrderIndex,
		&scene.CreatedAt,
		&scene.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCodeSceneNotFound,
			fmt.Sprintf("scene not found: %s", id), nil)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to query scene", err)
	}

	return &scene, nil
}

// ListParts retrieves a story's parts ordered by order index
func (r *PostgresStoryStore) ListParts(ctx context.Context, storyID string) ([]models.Part, error) {
	query := `
		SELECT id, story_id, title, order_index, created_at, updated_at
		FROM parts
		WHERE story_id = $1
		ORDER BY order_index ASC
	`

	rows, err := r.db.Query(ctx, query, storyID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to query parts", err)
	}
	defer rows.Close()

	var parts []models.Part
	for rows.Next() {
		var part models.Part
		err := rows.Scan(
			&part.ID,
			&part.StoryID,
			&part.Title,
			&part.OrderIndex,
			&part.CreatedAt,
			&part.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to scan part", err)
		}
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to read parts", err)
	}

	return parts, nil
}

// ListChaptersByPart retrieves a part's chapters ordered by order index
func (r *PostgresStoryStore) ListChaptersByPart(ctx context.Context, partID string) ([]models.Chapter, error) {
	query := `
		SELECT id, story_id, part_id, title, summary, order_index, created_at, updated_at
		FROM chapters
		WHERE part_id = $1
		ORDER BY order_index ASC
	`

	return r.scanChapters(ctx, query, partID)
}

// ListStandaloneChapters retrieves a story's part-less chapters ordered by
// order index
func (r *PostgresStoryStore) ListStandaloneChapters(ctx context.Context, storyID string) ([]models.Chapter, error) {
	query := `
		SELECT id, story_id, part_id, title, summary, order_index, created_at, updated_at
		FROM chapters
		WHERE story_id = $1 AND part_id IS NULL
		ORDER BY order_index ASC
	`

	return r.scanChapters(ctx, query, storyID)
}

func (r *PostgresStoryStore) scanChapters(ctx context.Context, query string, arg interface{}) ([]models.Chapter, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to query chapters", err)
	}
	defer rows.Close()

	var chapters []models.Chapter
	for rows.Next() {
		var chapter models.Chapter
		var partID *string
		err := rows.Scan(
			&chapter.ID,
			&chapter.StoryID,
			&partID,
			&chapter.Title,
			&chapter.Summary,
			&chapter.OrderIndex,
			&chapter.CreatedAt,
			&chapter.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to scan chapter", err)
		}
		if partID != nil {
			chapter.PartID = *partID
		}
		chapters = append(chapters, chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to read chapters", err)
	}

	return chapters, nil
}

// ListScenes retrieves a chapter's scenes ordered by order index. With
// includeContent false the content column is not fetched.
func (r *PostgresStoryStore) ListScenes(ctx context.Context, chapterID string, includeContent bool) ([]models.Scene, error) {
	contentExpr := "''"
	if includeContent {
		contentExpr = "content"
	}
	query := fmt.Sprintf(`
		SELECT id, chapter_id, title, %s, visibility, order_index, created_at, updated_at
		FROM scenes
		WHERE chapter_id = $1
		ORDER BY order_index ASC
	`, contentExpr)

	rows, err := r.db.Query(ctx, query, chapterID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to query scenes", err)
	}
	defer rows.Close()

	var scenes []models.Scene
	for rows.Next() {
		var scene models.Scene
		err := rows.Scan(
			&scene.ID,
			&scene.ChapterID,
			&scene.Title,
			&scene.Content,
			&scene.Visibility,
			&scene.OrderIndex,
			&scene.CreatedAt,
			&scene.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to scan scene", err)
		}
		scenes = append(scenes, scene)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to read scenes", err)
	}

	return scenes, nil
}

// InsertPart inserts a part under its story. The story row is locked so
// concurrent sibling inserts on the same story serialize; the partial
// unique index backs the collision check up at commit time.
func (r *PostgresStoryStore) InsertPart(ctx context.Context, part *models.Part) error {
	return r.withStoryTx(ctx, part.StoryID, func(tx pgx.Tx) error {
		var taken bool
		err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM parts WHERE story_id = $1 AND order_index = $2)",
			part.StoryID, part.OrderIndex).Scan(&taken)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to check part order index", err)
		}
		if taken {
			return apperrors.NewConflictError(apperrors.ErrCodeOrderIndexConflict,
				"order index already taken among sibling parts", nil)
		}

		now := time.Now().UTC()
		part.CreatedAt = now
		part.UpdatedAt = now

		_, err = tx.Exec(ctx, `
			INSERT INTO parts (id, story_id, title, order_index, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, part.ID, part.StoryID, part.Title, part.OrderIndex, part.CreatedAt, part.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewConflictError(apperrors.ErrCodeOrderIndexConflict,
					"order index already taken among sibling parts", err)
			}
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to insert part", err)
		}

		return nil
	})
}

// InsertChapter inserts a chapter under a part, or directly under its
// story when the part id is empty
func (r *PostgresStoryStore) InsertChapter(ctx context.Context, chapter *models.Chapter) error {
	return r.withStoryTx(ctx, chapter.StoryID, func(tx pgx.Tx) error {
		var partID *string
		if !chapter.IsStandalone() {
			var partStoryID string
			err := tx.QueryRow(ctx,
				"SELECT story_id FROM parts WHERE id = $1 FOR UPDATE",
				chapter.PartID).Scan(&partStoryID)
			if err == pgx.ErrNoRows {
				return apperrors.NewNotFoundError(apperrors.ErrCodePartNotFound,
					fmt.Sprintf("part not found: %s", chapter.PartID), nil)
			}
			if err != nil {
				return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
					"failed to lock part", err)
			}
			if partStoryID != chapter.StoryID {
				return apperrors.NewValidationError(apperrors.ErrCodeInvalidParent,
					"part belongs to a different story", nil)
			}
			partID = &chapter.PartID
		}

		var taken bool
		var err error
		if partID != nil {
			err = tx.QueryRow(ctx,
				"SELECT EXISTS(SELECT 1 FROM chapters WHERE part_id = $1 AND order_index = $2)",
				*partID, chapter.OrderIndex).Scan(&taken)
		} else {
			err = tx.QueryRow(ctx,
				"SELECT EXISTS(SELECT 1 FROM chapters WHERE story_id = $1 AND part_id IS NULL AND order_index = $2)",
				chapter.StoryID, chapter.OrderIndex).Scan(&taken)
		}
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to check chapter order index", err)
		}
		if taken {
			return apperrors.NewConflictError(apperrors.ErrCodeOrderIndexConflict,
				"order index already taken among sibling chapters", nil)
		}

		now := time.Now().UTC()
		chapter.CreatedAt = now
		chapter.UpdatedAt = now

		_, err = tx.Exec(ctx, `
			INSERT INTO chapters (id, story_id, part_id, title, summary, order_index, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, chapter.ID, chapter.StoryID, partID, chapter.Title, chapter.Summary,
			chapter.OrderIndex, chapter.CreatedAt, chapter.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewConflictError(apperrors.ErrCodeOrderIndexConflict,
					"order index already taken among sibling chapters", err)
			}
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to insert chapter", err)
		}

		return nil
	})
}

// InsertScene inserts a scene under its chapter
func (r *PostgresStoryStore) InsertScene(ctx context.Context, scene *models.Scene) error {
	storyID, err := r.storyIDForChapter(ctx, scene.ChapterID)
	if err != nil {
		return err
	}

	return r.withStoryTx(ctx, storyID, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM chapters WHERE id = $1)", scene.ChapterID).Scan(&exists)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to check chapter", err)
		}
		if !exists {
			return apperrors.NewNotFoundError(apperrors.ErrCodeChapterNotFound,
				fmt.Sprintf("chapter not found: %s", scene.ChapterID), nil)
		}

		var taken bool
		err = tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM scenes WHERE chapter_id = $1 AND order_index = $2)",
			scene.ChapterID, scene.OrderIndex).Scan(&taken)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to check scene order index", err)
		}
		if taken {
			return apperrors.NewConflictError(apperrors.ErrCodeOrderIndexConflict,
				"order index already taken among sibling scenes", nil)
		}

		now := time.Now().UTC()
		scene.CreatedAt = now
		scene.UpdatedAt = now

		_, err = tx.Exec(ctx, `
			INSERT INTO scenes (id, chapter_id, title, content, visibility, order_index, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, scene.ID, scene.ChapterID, scene.Title, scene.Content, scene.Visibility,
			scene.OrderIndex, scene.CreatedAt, scene.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewConflictError(apperrors.ErrCodeOrderIndexConflict,
					"order index already taken among sibling scenes", err)
			}
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to insert scene", err)
		}

		return nil
	})
}

// UpdatePart updates a part's own fields
func (r *PostgresStoryStore) UpdatePart(ctx context.Context, part *models.Part) error {
	return r.withStoryTx(ctx, part.StoryID, func(tx pgx.Tx) error {
		part.UpdatedAt = time.Now().UTC()

		tag, err := tx.Exec(ctx,
			"UPDATE parts SET title = $2, updated_at = $3 WHERE id = $1",
			part.ID, part.Title, part.UpdatedAt)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to update part", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewNotFoundError(apperrors.ErrCodePartNotFound,
				fmt.Sprintf("part not found: %s", part.ID), nil)
		}
		return nil
	})
}

// UpdateChapter updates a chapter's own fields
func (r *PostgresStoryStore) UpdateChapter(ctx context.Context, chapter *models.Chapter) error {
	return r.withStoryTx(ctx, chapter.StoryID, func(tx pgx.Tx) error {
		chapter.UpdatedAt = time.Now().UTC()

		tag, err := tx.Exec(ctx,
			"UPDATE chapters SET title = $2, summary = $3, updated_at = $4 WHERE id = $1",
			chapter.ID, chapter.Title, chapter.Summary, chapter.UpdatedAt)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to update chapter", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewNotFoundError(apperrors.ErrCodeChapterNotFound,
				fmt.Sprintf("chapter not found: %s", chapter.ID), nil)
		}
		return nil
	})
}

// UpdateScene updates a scene's own fields
func (r *PostgresStoryStore) UpdateScene(ctx context.Context, scene *models.Scene) error {
	storyID, err := r.storyIDForChapter(ctx, scene.ChapterID)
	if err != nil {
		return err
	}

	return r.withStoryTx(ctx, storyID, func(tx pgx.Tx) error {
		scene.UpdatedAt = time.Now().UTC()

		tag, err := tx.Exec(ctx, `
			UPDATE scenes SET title = $2, content = $3, visibility = $4, updated_at = $5
			WHERE id = $1
		`, scene.ID, scene.Title, scene.Content, scene.Visibility, scene.UpdatedAt)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to update scene", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewNotFoundError(apperrors.ErrCodeSceneNotFound,
				fmt.Sprintf("scene not found: %s", scene.ID), nil)
		}
		return nil
	})
}

// DeletePart removes a part. A part that still holds chapters is rejected
// with a conflict; the caller detaches or removes children first.
func (r *PostgresStoryStore) DeletePart(ctx context.Context, id string) error {
	part, err := r.GetPart(ctx, id)
	if err != nil {
		return err
	}

	return r.withStoryTx(ctx, part.StoryID, func(tx pgx.Tx) error {
		var hasChildren bool
		err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM chapters WHERE part_id = $1)", id).Scan(&hasChildren)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to check part children", err)
		}
		if hasChildren {
			return apperrors.NewConflictError(apperrors.ErrCodeHasChildren,
				"part still has chapters", nil)
		}

		tag, err := tx.Exec(ctx, "DELETE FROM parts WHERE id = $1", id)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to delete part", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewNotFoundError(apperrors.ErrCodePartNotFound,
				fmt.Sprintf("part not found: %s", id), nil)
		}
		return nil
	})
}

// DeleteChapter removes a chapter, rejecting chapters that still hold
// scenes
func (r *PostgresStoryStore) DeleteChapter(ctx context.Context, id string) error {
	chapter, err := r.GetChapter(ctx, id)
	if err != nil {
		return err
	}

	return r.withStoryTx(ctx, chapter.StoryID, func(tx pgx.Tx) error {
		var hasChildren bool
		err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM scenes WHERE chapter_id = $1)", id).Scan(&hasChildren)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to check chapter children", err)
		}
		if hasChildren {
			return apperrors.NewConflictError(apperrors.ErrCodeHasChildren,
				"chapter still has scenes", nil)
		}

		tag, err := tx.Exec(ctx, "DELETE FROM chapters WHERE id = $1", id)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to delete chapter", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewNotFoundError(apperrors.ErrCodeChapterNotFound,
				fmt.Sprintf("chapter not found: %s", id), nil)
		}
		return nil
	})
}

// DeleteScene removes a scene
func (r *PostgresStoryStore) DeleteScene(ctx context.Context, id string) error {
	scene, err := r.GetScene(ctx, id)
	if err != nil {
		return err
	}

	storyID, err := r.storyIDForChapter(ctx, scene.ChapterID)
	if err != nil {
		return err
	}

	return r.withStoryTx(ctx, storyID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM scenes WHERE id = $1", id)
		if err != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
				"failed to delete scene", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewNotFoundError(apperrors.ErrCodeSceneNotFound,
				fmt.Sprintf("scene not found: %s", id), nil)
		}
		return nil
	})
}

// Ping checks database connectivity
func (r *PostgresStoryStore) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// withStoryTx runs fn inside a transaction holding the story row lock,
// then bumps the story's updated_at before committing. Every structural
// write under a story funnels through here, so the timestamp bump and the
// write land in one unit of work.
func (r *PostgresStoryStore) withStoryTx(ctx context.Context, storyID string, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseTx,
			"failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, "SELECT id FROM stories WHERE id = $1 FOR UPDATE", storyID).Scan(&locked)
	if err == pgx.ErrNoRows {
		return apperrors.NewNotFoundError(apperrors.ErrCodeStoryNotFound,
			fmt.Sprintf("story not found: %s", storyID), nil)
	}
	if err != nil {
		return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to lock story", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, "UPDATE stories SET updated_at = $2 WHERE id = $1",
		storyID, time.Now().UTC())
	if err != nil {
		return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to bump story timestamp", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseTx,
			"failed to commit transaction", err)
	}

	return nil
}

func (r *PostgresStoryStore) storyIDForChapter(ctx context.Context, chapterID string) (string, error) {
	var storyID string
	err := r.db.QueryRow(ctx,
		"SELECT story_id FROM chapters WHERE id = $1", chapterID).Scan(&storyID)
	if err == pgx.ErrNoRows {
		return "", apperrors.NewNotFoundError(apperrors.ErrCodeChapterNotFound,
			fmt.Sprintf("chapter not found: %s", chapterID), nil)
	}
	if err != nil {
		return "", apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery,
			"failed to resolve chapter's story", err)
	}
	return storyID, nil
}
