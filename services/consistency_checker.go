package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ConsistencyChecker inspects the story hierarchy for structural damage.
// It only reports: duplicate order indexes and broken references are
// authoring-side bugs, and silently rewriting them would hide the bug
// while changing the reading order readers already saw.
type ConsistencyChecker interface {
	// Reference consistency
	CheckReferenceConsistency(ctx context.Context) ([]ConsistencyError, error)

	// Sibling ordering consistency
	CheckOrderConsistency(ctx context.Context) ([]ConsistencyError, error)

	// Overall consistency check
	CheckAllConsistency(ctx context.Context) (*ConsistencyReport, error)

	// Validation
	ValidateDataIntegrity(ctx context.Context) (*IntegrityReport, error)
}

// ConsistencyError represents a data consistency error
type ConsistencyError struct {
	Type        string                 `json:"type"`
	NodeID      string                 `json:"node_id"`
	Table       string                 `json:"table"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details"`
	Severity    string                 `json:"severity"` // "low", "medium", "high", "critical"
	Timestamp   time.Time              `json:"timestamp"`
}

// ConsistencyReport represents the overall consistency status
type ConsistencyReport struct {
	CheckTime        time.Time          `json:"check_time"`
	TotalErrors      int                `json:"total_errors"`
	ErrorsByType     map[string]int     `json:"errors_by_type"`
	ErrorsBySeverity map[string]int     `json:"errors_by_severity"`
	Errors           []ConsistencyError `json:"errors"`
	Recommendations  []string           `json:"recommendations"`
}

// IntegrityReport represents data integrity validation results
type IntegrityReport struct {
	CheckTime       time.Time        `json:"check_time"`
	TablesChecked   []string         `json:"tables_checked"`
	TotalRecords    map[string]int64 `json:"total_records"`
	IntegrityIssues []IntegrityIssue `json:"integrity_issues"`
	Recommendations []string         `json:"recommendations"`
	IsHealthy       bool             `json:"is_healthy"`
}

// IntegrityIssue represents a data integrity issue
type IntegrityIssue struct {
	Type        string                 `json:"type"`
	Table       string                 `json:"table"`
	Description string                 `json:"description"`
	Count       int64                  `json:"count"`
	Details     map[string]interface{} `json:"details"`
	Severity    string                 `json:"severity"`
}

// DatabaseConsistencyChecker implements ConsistencyChecker with direct SQL
type DatabaseConsistencyChecker struct {
	db     *sql.DB
	logger Logger
}

// NewDatabaseConsistencyChecker creates a new database consistency checker
func NewDatabaseConsistencyChecker(db *sql.DB, logger Logger) *DatabaseConsistencyChecker {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	return &DatabaseConsistencyChecker{
		db:     db,
		logger: logger,
	}
}

// CheckReferenceConsistency finds nodes whose parent reference points at a
// missing row, and chapters whose part belongs to a different story
func (cc *DatabaseConsistencyChecker) CheckReferenceConsistency(ctx context.Context) ([]ConsistencyError, error) {
	var errors []ConsistencyError

	// Parts whose story is gone
	partQuery := `
		SELECT p.id, p.story_id
		FROM parts p
		LEFT JOIN stories s ON p.story_id = s.id
		WHERE s.id IS NULL
	`

	rows, err := cc.db.QueryContext(ctx, partQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to check orphaned parts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var partID, storyID string

		if err := rows.Scan(&partID, &storyID); err != nil {
			cc.logger.Error("Failed to scan orphaned part row", err)
			continue
		}

		errors = append(errors, ConsistencyError{
			Type:        "orphaned_part",
			NodeID:      partID,
			Table:       "parts",
			Description: "Part references a missing story",
			Details: map[string]interface{}{
				"story_id": storyID,
			},
			Severity:  "high",
			Timestamp: time.Now(),
		})
	}

	// Chapters whose story or part is gone, or whose part belongs to a
	// different story than the chapter claims
	chapterQuery := `
		SELECT c.id, c.story_id, c.part_id, s.id IS NULL AS story_missing,
		       c.part_id IS NOT NULL AND p.id IS NULL AS part_missing,
		       p.id IS NOT NULL AND p.story_id != c.story_id AS story_mismatch
		FROM chapters c
		LEFT JOIN stories s ON c.story_id = s.id
		LEFT JOIN parts p ON c.part_id = p.id
		WHERE s.id IS NULL
		   OR (c.part_id IS NOT NULL AND p.id IS NULL)
		   OR (p.id IS NOT NULL AND p.story_id != c.story_id)
	`

	rows, err = cc.db.QueryContext(ctx, chapterQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to check orphaned chapters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chapterID, storyID string
		var partID sql.NullString
		var storyMissing, partMissing, storyMismatch bool

		if err := rows.Scan(&chapterID, &storyID, &partID, &storyMissing, &partMissing, &storyMismatch); err != nil {
			cc.logger.Error("Failed to scan orphaned chapter row", err)
			continue
		}

		errType := "orphaned_chapter"
		description := "Chapter references a missing story"
		severity := "high"
		if partMissing {
			description = "Chapter references a missing part"
		} else if storyMismatch {
			errType = "cross_story_chapter"
			description = "Chapter's part belongs to a different story"
			severity = "critical"
		}

		errors = append(errors, ConsistencyError{
			Type:        errType,
			NodeID:      chapterID,
			Table:       "chapters",
			Description: description,
			Details: map[string]interface{}{
				"story_id": storyID,
				"part_id":  partID.String,
			},
			Severity:  severity,
			Timestamp: time.Now(),
		})
	}

	// Scenes whose chapter is gone
	sceneQuery := `
		SELECT sc.id, sc.chapter_id
		FROM scenes sc
		LEFT JOIN chapters c ON sc.chapter_id = c.id
		WHERE c.id IS NULL
	`

	rows, err = cc.db.QueryContext(ctx, sceneQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to check orphaned scenes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sceneID, chapterID string

		if err := rows.Scan(&sceneID, &chapterID); err != nil {
			cc.logger.Error("Failed to scan orphaned scene row", err)
			continue
		}

		errors = append(errors, ConsistencyError{
			Type:        "orphaned_scene",
			NodeID:      sceneID,
			Table:       "scenes",
			Description: "Scene references a missing chapter",
			Details: map[string]interface{}{
				"chapter_id": chapterID,
			},
			Severity:  "high",
			Timestamp: time.Now(),
		})
	}

	return errors, nil
}

// CheckOrderConsistency finds sibling groups holding the same order index.
// Duplicates make the reading order ambiguous; tree loads for the affected
// story fail until an author resolves them.
func (cc *DatabaseConsistencyChecker) CheckOrderConsistency(ctx context.Context) ([]ConsistencyError, error) {
	var errors []ConsistencyError

	checks := []struct {
		errType     string
		table       string
		parentLabel string
		query       string
	}{
		{
			errType:     "duplicate_part_order",
			table:       "parts",
			parentLabel: "story_id",
			query: `
				SELECT story_id, order_index, array_agg(id ORDER BY id)
				FROM parts
				GROUP BY story_id, order_index
				HAVING COUNT(*) > 1
			`,
		},
		{
			errType:     "duplicate_chapter_order",
			table:       "chapters",
			parentLabel: "part_id",
			query: `
				SELECT part_id, order_index, array_agg(id ORDER BY id)
				FROM chapters
				WHERE part_id IS NOT NULL
				GROUP BY part_id, order_index
				HAVING COUNT(*) > 1
			`,
		},
		{
			errType:     "duplicate_standalone_chapter_order",
			table:       "chapters",
			parentLabel: "story_id",
			query: `
				SELECT story_id, order_index, array_agg(id ORDER BY id)
				FROM chapters
				WHERE part_id IS NULL
				GROUP BY story_id, order_index
				HAVING COUNT(*) > 1
			`,
		},
		{
			errType:     "duplicate_scene_order",
			table:       "scenes",
			parentLabel: "chapter_id",
			query: `
				SELECT chapter_id, order_index, array_agg(id ORDER BY id)
				FROM scenes
				GROUP BY chapter_id, order_index
				HAVING COUNT(*) > 1
			`,
		},
	}

	for _, check := range checks {
		rows, err := cc.db.QueryContext(ctx, check.query)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", check.errType, err)
		}

		for rows.Next() {
			var parentID string
			var orderIndex int
			var siblingIDs []string

			if err := rows.Scan(&parentID, &orderIndex, pq.Array(&siblingIDs)); err != nil {
				cc.logger.Error("Failed to scan duplicate order row", err, String("check", check.errType))
				continue
			}

			errors = append(errors, ConsistencyError{
				Type:        check.errType,
				NodeID:      parentID,
				Table:       check.table,
				Description: "Sibling nodes share an order index",
				Details: map[string]interface{}{
					check.parentLabel: parentID,
					"order_index":     orderIndex,
					"sibling_ids":     siblingIDs,
				},
				Severity:  "critical",
				Timestamp: time.Now(),
			})
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read %s rows: %w", check.errType, err)
		}
		rows.Close()
	}

	return errors, nil
}

// CheckAllConsistency performs a comprehensive consistency check
func (cc *DatabaseConsistencyChecker) CheckAllConsistency(ctx context.Context) (*ConsistencyReport, error) {
	start := time.Now()
	var allErrors []ConsistencyError

	refErrors, err := cc.CheckReferenceConsistency(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check reference consistency: %w", err)
	}
	allErrors = append(allErrors, refErrors...)

	orderErrors, err := cc.CheckOrderConsistency(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check order consistency: %w", err)
	}
	allErrors = append(allErrors, orderErrors...)

	errorsByType := make(map[string]int)
	errorsBySeverity := make(map[string]int)

	for _, err := range allErrors {
		errorsByType[err.Type]++
		errorsBySeverity[err.Severity]++
	}

	var recommendations []string
	if len(refErrors) > 0 {
		recommendations = append(recommendations, "Remove or re-parent nodes with broken references")
	}
	if len(orderErrors) > 0 {
		recommendations = append(recommendations, "Reassign order indexes in the listed sibling groups; reads of the affected subtrees fail until resolved")
	}
	if len(allErrors) == 0 {
		recommendations = append(recommendations, "No consistency issues found - hierarchy is healthy")
	}

	report := &ConsistencyReport{
		CheckTime:        start,
		TotalErrors:      len(allErrors),
		ErrorsByType:     errorsByType,
		ErrorsBySeverity: errorsBySeverity,
		Errors:           allErrors,
		Recommendations:  recommendations,
	}

	cc.logger.Info("Completed consistency check",
		Int("total_errors", len(allErrors)),
		Duration("duration", time.Since(start)))

	return report, nil
}

// ValidateDataIntegrity performs comprehensive data integrity validation
func (cc *DatabaseConsistencyChecker) ValidateDataIntegrity(ctx context.Context) (*IntegrityReport, error) {
	start := time.Now()
	var issues []IntegrityIssue
	totalRecords := make(map[string]int64)

	tables := []string{"stories", "parts", "chapters", "scenes"}
	for _, table := range tables {
		var count int64
		err := cc.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		totalRecords[table] = count
	}

	var negativeOrders int64
	err := cc.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM parts WHERE order_index < 0)
		     + (SELECT COUNT(*) FROM chapters WHERE order_index < 0)
		     + (SELECT COUNT(*) FROM scenes WHERE order_index < 0)
	`).Scan(&negativeOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to check negative order indexes: %w", err)
	}

	if negativeOrders > 0 {
		issues = append(issues, IntegrityIssue{
			Type:        "negative_order_index",
			Table:       "parts, chapters, scenes",
			Description: "Nodes with a negative order index",
			Count:       negativeOrders,
			Severity:    "high",
		})
	}

	var emptyTitles int64
	err = cc.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM stories WHERE title = '')
		     + (SELECT COUNT(*) FROM parts WHERE title = '')
		     + (SELECT COUNT(*) FROM chapters WHERE title = '')
		     + (SELECT COUNT(*) FROM scenes WHERE title = '')
	`).Scan(&emptyTitles)
	if err != nil {
		return nil, fmt.Errorf("failed to check empty titles: %w", err)
	}

	if emptyTitles > 0 {
		issues = append(issues, IntegrityIssue{
			Type:        "empty_title",
			Table:       "stories, parts, chapters, scenes",
			Description: "Nodes with an empty title",
			Count:       emptyTitles,
			Severity:    "medium",
		})
	}

	var invalidVisibility int64
	err = cc.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scenes WHERE visibility NOT IN ('private', 'public')").Scan(&invalidVisibility)
	if err != nil {
		return nil, fmt.Errorf("failed to check scene visibility values: %w", err)
	}

	if invalidVisibility > 0 {
		issues = append(issues, IntegrityIssue{
			Type:        "invalid_visibility",
			Table:       "scenes",
			Description: "Scenes with an unknown visibility value",
			Count:       invalidVisibility,
			Severity:    "high",
		})
	}

	var recommendations []string
	isHealthy := len(issues) == 0

	for _, issue := range issues {
		switch issue.Type {
		case "negative_order_index":
			recommendations = append(recommendations, "Reassign non-negative order indexes to the affected nodes")
		case "empty_title":
			recommendations = append(recommendations, "Backfill titles for the affected nodes")
		case "invalid_visibility":
			recommendations = append(recommendations, "Normalize scene visibility to 'private' or 'public'")
		}
	}

	if isHealthy {
		recommendations = append(recommendations, "Data integrity is healthy - no issues found")
	}

	report := &IntegrityReport{
		CheckTime:       start,
		TablesChecked:   tables,
		TotalRecords:    totalRecords,
		IntegrityIssues: issues,
		Recommendations: recommendations,
		IsHealthy:       isHealthy,
	}

	cc.logger.Info("Completed data integrity validation",
		Bool("is_healthy", isHealthy),
		Int("issues_found", len(issues)),
		Duration("duration", time.Since(start)))

	return report, nil
}
