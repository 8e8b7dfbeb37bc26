package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "story-content-gateway/errors"
	"story-content-gateway/models"
)

// TreeCacheConfig holds TTL policy and backend timeouts for the tree cache
type TreeCacheConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// PublishedTTL applies to publicly published stories; private or
	// draft content gets PrivateTTL. Coherence for authors is carried by
	// write-triggered invalidation, not by the TTL, so the private TTL
	// stays short as a safety net only.
	PublishedTTL time.Duration `json:"published_ttl" yaml:"published_ttl"`
	PrivateTTL   time.Duration `json:"private_ttl" yaml:"private_ttl"`

	// BackendTimeout bounds every backend call; on expiry the lookup is
	// treated as a miss and the origin serves the request.
	BackendTimeout time.Duration `json:"backend_timeout" yaml:"backend_timeout"`
}

// DefaultTreeCacheConfig returns default tree cache configuration
func DefaultTreeCacheConfig() *TreeCacheConfig {
	return &TreeCacheConfig{
		Enabled:        true,
		PublishedTTL:   30 * time.Minute,
		PrivateTTL:     time.Minute,
		BackendTimeout: 250 * time.Millisecond,
	}
}

// TreeCache is a read-through cache in front of the tree loader, keyed by
// (story id, mode). The backend is never authoritative: a backend failure
// fails open and the origin loader serves the request.
//
// Authorization runs against the story row before any cache read, so a
// Forbidden viewer can never be served from — or populate — the cache.
// The cached value itself is viewer-independent.
type TreeCache struct {
	backend    CacheService
	loader     TreeLoader
	store      StoryStore
	authorizer Authorizer
	metrics    MetricsService
	monitor    PerformanceMonitor
	logger     Logger
	config     *TreeCacheConfig
	breaker    *apperrors.CircuitBreaker
	flight     singleflight.Group

	// generations counts invalidations per story. A miss records the
	// generation before loading and refuses to cache the result if an
	// invalidation bumped it mid-load, so a write that lands during an
	// origin load can never be undone by the load's backendSet.
	genMu       sync.Mutex
	generations map[string]uint64
}

// NewTreeCache creates a new tree cache
func NewTreeCache(
	backend CacheService,
	loader TreeLoader,
	store StoryStore,
	authorizer Authorizer,
	metrics MetricsService,
	monitor PerformanceMonitor,
	logger Logger,
	config *TreeCacheConfig,
) *TreeCache {
	if config == nil {
		config = DefaultTreeCacheConfig()
	}
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if authorizer == nil {
		authorizer = NewDefaultAuthorizer()
	}

	return &TreeCache{
		backend:     backend,
		loader:      loader,
		store:       store,
		authorizer:  authorizer,
		metrics:     metrics,
		monitor:     monitor,
		logger:      logger,
		config:      config,
		breaker:     apperrors.NewCircuitBreaker(nil),
		generations: make(map[string]uint64),
	}
}

// GetOrLoad returns the tree for (storyID, mode), serving from cache when
// possible. NotFound and Forbidden results are never cached.
func (tc *TreeCache) GetOrLoad(ctx context.Context, storyID string, mode models.TreeMode, viewer Viewer) (*models.StoryTree, error) {
	if !mode.Valid() {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeInvalidMode,
			fmt.Sprintf("unknown tree mode %q", mode), nil)
	}

	// Minimal read needed for the access decision; runs before the cache
	// is consulted.
	story, err := tc.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if !tc.authorizer.CanView(story, viewer) {
		return nil, apperrors.NewForbiddenError(apperrors.ErrCodeAccessDenied,
			"viewer is not allowed to read this story", nil)
	}

	visibility := visibilityClass(story)
	tags := map[string]string{"mode": string(mode), "visibility": visibility}

	if tc.backend == nil || !tc.config.Enabled {
		return tc.loadOrigin(ctx, storyID, mode, viewer, tags)
	}

	key := treeCacheKey(storyID, mode)
	start := time.Now()

	if tree, found := tc.backendGet(ctx, key); found {
		duration := time.Since(start)
		tc.recordLookup(tags, "hit", duration)
		return tree, nil
	}

	// Collapse concurrent misses for the same key into one origin load.
	value, err, _ := tc.flight.Do(key, func() (interface{}, error) {
		gen := tc.storyGeneration(storyID)

		tree, err := tc.loader.LoadTree(ctx, storyID, mode, viewer)
		if err != nil {
			return nil, err
		}

		// An invalidation during the load means the tree may predate the
		// write that triggered it. Serve it to this caller (the read began
		// before the write was acknowledged) but keep it out of the cache.
		if tc.storyGeneration(storyID) == gen {
			tc.backendSet(ctx, key, tree, tc.ttlFor(story))
			if tc.storyGeneration(storyID) != gen {
				tc.backendDelete(ctx, key)
			}
		}
		return tree, nil
	})
	duration := time.Since(start)
	if err != nil {
		tc.recordError(tags, err)
		return nil, err
	}

	tc.recordLookup(tags, "miss", duration)
	return value.(*models.StoryTree), nil
}

// InvalidateStory implements CacheInvalidator: drops both cache modes for
// the story. Granularity is per-story on purpose; invalidating single
// nodes risks serving a partially stale tree.
func (tc *TreeCache) InvalidateStory(ctx context.Context, storyID string) {
	// Bump before touching the backend so an in-flight load observes the
	// invalidation even if it finishes between the bump and the delete.
	tc.bumpGeneration(storyID)

	if tc.backend == nil {
		return
	}

	opCtx, cancel := tc.backendContext(ctx)
	defer cancel()

	if err := tc.backend.DeletePattern(opCtx, "tree:"+storyID+":*"); err != nil {
		tc.logger.Warn("cache invalidation failed, entries will expire by TTL",
			String("story_id", storyID),
			String("error", err.Error()))
		return
	}

	tc.logger.Debug("cache invalidated", String("story_id", storyID))
}

// ClearAll wipes every cached tree. Privileged; the caller handles
// authorization.
func (tc *TreeCache) ClearAll(ctx context.Context) error {
	if tc.backend == nil {
		return nil
	}

	opCtx, cancel := tc.backendContext(ctx)
	defer cancel()

	return tc.backend.Clear(opCtx)
}

// Stats returns backend cache statistics
func (tc *TreeCache) Stats() CacheStats {
	if tc.backend == nil {
		return CacheStats{}
	}
	return tc.backend.GetStats()
}

// loadOrigin serves directly from the loader, bypassing the backend
func (tc *TreeCache) loadOrigin(ctx context.Context, storyID string, mode models.TreeMode, viewer Viewer, tags map[string]string) (*models.StoryTree, error) {
	start := time.Now()
	tree, err := tc.loader.LoadTree(ctx, storyID, mode, viewer)
	if err != nil {
		tc.recordError(tags, err)
		return nil, err
	}

	tc.recordLookup(tags, "miss", time.Since(start))
	return tree, nil
}

// backendGet reads a tree from the backend, failing open on any backend
// error or timeout
func (tc *TreeCache) backendGet(ctx context.Context, key string) (*models.StoryTree, bool) {
	var tree models.StoryTree
	var found bool

	opCtx, cancel := tc.backendContext(ctx)
	defer cancel()

	err := tc.breaker.Execute(opCtx, func() error {
		var err error
		found, err = tc.backend.Get(opCtx, key, &tree)
		return err
	})
	if err != nil {
		tc.logger.Warn("cache backend read failed, serving from origin",
			String("key", key),
			String("error", err.Error()))
		return nil, false
	}

	if !found {
		return nil, false
	}
	return &tree, true
}

// backendSet writes a tree to the backend, tolerating failure
func (tc *TreeCache) backendSet(ctx context.Context, key string, tree *models.StoryTree, ttl time.Duration) {
	opCtx, cancel := tc.backendContext(ctx)
	defer cancel()

	err := tc.breaker.Execute(opCtx, func() error {
		return tc.backend.Set(opCtx, key, tree, ttl)
	})
	if err != nil {
		tc.logger.Warn("cache backend write failed, entry not cached",
			String("key", key),
			String("error", err.Error()))
	}
}

// backendDelete drops a single key, tolerating failure
func (tc *TreeCache) backendDelete(ctx context.Context, key string) {
	opCtx, cancel := tc.backendContext(ctx)
	defer cancel()

	if err := tc.backend.Delete(opCtx, key); err != nil {
		tc.logger.Warn("cache backend delete failed, entry will expire by TTL",
			String("key", key),
			String("error", err.Error()))
	}
}

func (tc *TreeCache) storyGeneration(storyID string) uint64 {
	tc.genMu.Lock()
	defer tc.genMu.Unlock()
	return tc.generations[storyID]
}

func (tc *TreeCache) bumpGeneration(storyID string) {
	tc.genMu.Lock()
	tc.generations[storyID]++
	tc.genMu.Unlock()
}

func (tc *TreeCache) backendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := tc.config.BackendTimeout
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	return context.WithTimeout(ctx, timeout)
}

func (tc *TreeCache) ttlFor(story *models.Story) time.Duration {
	if story.IsPublished() {
		return tc.config.PublishedTTL
	}
	return tc.config.PrivateTTL
}

func (tc *TreeCache) recordLookup(tags map[string]string, outcome string, duration time.Duration) {
	if tc.metrics != nil {
		counterTags := map[string]string{
			"mode":       tags["mode"],
			"visibility": tags["visibility"],
			"outcome":    outcome,
		}
		tc.metrics.IncrementCounter("tree_cache_requests", counterTags)
		tc.metrics.RecordDuration("tree_cache_latency", duration, tags)
	}

	if tc.monitor != nil {
		name := "tree_cache." + tags["mode"]
		if outcome == "hit" {
			tc.monitor.RecordHit(name, duration)
		} else {
			tc.monitor.RecordMiss(name, duration)
		}
	}
}

func (tc *TreeCache) recordError(tags map[string]string, err error) {
	if tc.metrics != nil {
		counterTags := map[string]string{
			"mode":       tags["mode"],
			"visibility": tags["visibility"],
			"outcome":    "error",
		}
		tc.metrics.IncrementCounter("tree_cache_requests", counterTags)
	}

	if tc.monitor != nil {
		tc.monitor.RecordError("tree_cache."+tags["mode"], err)
	}
}

// treeCacheKey builds the backend key for (storyID, mode)
func treeCacheKey(storyID string, mode models.TreeMode) string {
	return fmt.Sprintf("tree:%s:%s", storyID, mode)
}

// visibilityClass buckets a story for metrics tagging
func visibilityClass(story *models.Story) string {
	if story.IsPublished() {
		return "public"
	}
	return "private"
}
