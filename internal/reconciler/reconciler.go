package reconciler

import (
	"context"
	"fmt"

	"github.com/Mudassar864/yaopets-sub001/internal/cache"
	"github.com/Mudassar864/yaopets-sub001/internal/client"
	"github.com/Mudassar864/yaopets-sub001/internal/models"
	"github.com/Mudassar864/yaopets-sub001/pkg/logger"
	"github.com/Mudassar864/yaopets-sub001/pkg/metrics"
)

// Report summarizes one reconciliation pass. A pass over already-converged
// state reports all zeros; that is the fixed point.
type Report struct {
	// Pulled counts server-side interactions materialized into the cache
	Pulled int
	// Pushed counts local-only interactions re-issued to the server
	Pushed int
	// RemovalsRetried counts tombstoned removals re-issued to the server
	RemovalsRetried int
	// PushFailures counts outbound calls that failed and were left for the
	// next pass
	PushFailures int
}

// Changed reports whether the pass moved any state on either side
func (r Report) Changed() bool {
	return r.Pulled > 0 || r.Pushed > 0 || r.RemovalsRetried > 0
}

// Reconciler brings one user's local cache into agreement with the
// authoritative store. Divergence is the expected steady state here, not an
// error: it accumulates from offline use, failed calls, and other devices.
// The merge is convergent and idempotent, and it never discards a local entry
// because the server disagrees — local truth propagates outward instead.
type Reconciler struct {
	cache   *cache.Cache
	api     client.API
	metrics *metrics.Metrics
	log     *logger.Logger
}

func New(c *cache.Cache, api client.API, m *metrics.Metrics, log *logger.Logger) *Reconciler {
	return &Reconciler{
		cache:   c,
		api:     api,
		metrics: m,
		log:     log,
	}
}

// SyncPosts reconciles the liked/saved state of the given posts, typically on
// feed load. Server-present/cache-absent materializes locally; cache-present/
// server-absent pushes outward; a tombstoned target re-issues its removal.
func (r *Reconciler) SyncPosts(ctx context.Context, postIDs []string) (Report, error) {
	var report Report
	if len(postIDs) == 0 {
		return report, nil
	}

	userID := r.cache.UserID()
	statuses, err := r.api.GetPostStatuses(ctx, userID, postIDs)
	if err != nil {
		return report, fmt.Errorf("failed to fetch authoritative snapshot: %w", err)
	}

	for _, status := range statuses {
		r.mergePresence(ctx, models.KindLike, status.PostID, status.IsLiked, &report)
		r.mergePresence(ctx, models.KindSave, status.PostID, status.IsSaved, &report)
	}

	if report.Changed() || report.PushFailures > 0 {
		r.log.WithFields(map[string]interface{}{
			"user_id":          userID,
			"pulled":           report.Pulled,
			"pushed":           report.Pushed,
			"removals_retried": report.RemovalsRetried,
			"push_failures":    report.PushFailures,
		}).Info("reconciled post interactions")
	}
	return report, nil
}

// Run reconciles the user's full interaction set against the authoritative
// store, typically at session start. Presence flags merge both ways; comments
// warm the cache additively only, since comment creation already went through
// a synchronous server round trip.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report
	userID := r.cache.UserID()

	snapshot, err := r.api.GetUserSnapshot(ctx, userID, "")
	if err != nil {
		return report, fmt.Errorf("failed to fetch authoritative snapshot: %w", err)
	}

	serverLikes := make(map[string]models.Like)
	serverSaves := make(map[string]models.Save)
	serverCommentLikes := make(map[string]models.CommentLike)

	for _, in := range snapshot {
		switch v := in.(type) {
		case models.Like:
			serverLikes[v.PostID] = v
		case models.Save:
			serverSaves[v.PostID] = v
		case models.CommentLike:
			serverCommentLikes[v.CommentID] = v
		case models.Comment:
			// Additive warm-up; Add dedupes by comment ID
			if !r.cache.IsCommentCached(v.ID) {
				r.cache.Add(v)
				report.Pulled++
				r.metrics.ReconcilerPulls.Inc()
			}
		}
	}

	// Server side in, local side out
	for postID, like := range serverLikes {
		r.pullOrRetireRemoval(ctx, models.KindLike, postID, "", like, &report)
	}
	for postID, save := range serverSaves {
		r.pullOrRetireRemoval(ctx, models.KindSave, postID, "", save, &report)
	}
	for commentID, cl := range serverCommentLikes {
		r.pullOrRetireRemoval(ctx, models.KindCommentLike, "", commentID, cl, &report)
	}

	// Local side out: anything the server lacks is an unsynced local action
	for _, in := range r.cache.Interactions() {
		switch v := in.(type) {
		case models.Like:
			if _, ok := serverLikes[v.PostID]; !ok {
				r.push(ctx, v, &report)
			}
		case models.Save:
			if _, ok := serverSaves[v.PostID]; !ok {
				r.push(ctx, v, &report)
			}
		case models.CommentLike:
			if _, ok := serverCommentLikes[v.CommentID]; !ok {
				r.push(ctx, v, &report)
			}
		}
	}

	// Tombstones for targets the server no longer has are settled removals
	for _, t := range r.cache.Tombstones() {
		switch t.Kind {
		case models.KindLike:
			if _, ok := serverLikes[t.PostID]; !ok {
				r.cache.ClearTombstone(t.Kind, t.PostID, "")
			}
		case models.KindSave:
			if _, ok := serverSaves[t.PostID]; !ok {
				r.cache.ClearTombstone(t.Kind, t.PostID, "")
			}
		case models.KindCommentLike:
			if _, ok := serverCommentLikes[t.CommentID]; !ok {
				r.cache.ClearTombstone(t.Kind, "", t.CommentID)
			}
		}
	}

	if report.Changed() || report.PushFailures > 0 {
		r.log.WithFields(map[string]interface{}{
			"user_id":          userID,
			"pulled":           report.Pulled,
			"pushed":           report.Pushed,
			"removals_retried": report.RemovalsRetried,
			"push_failures":    report.PushFailures,
		}).Info("reconciled user interactions")
	}
	return report, nil
}

// mergePresence resolves one (kind, post) pair between cache and server
func (r *Reconciler) mergePresence(ctx context.Context, kind models.Kind, postID string, serverPresent bool, report *Report) {
	localPresent := r.localPresence(kind, postID)

	switch {
	case serverPresent && !localPresent:
		if r.cache.HasTombstone(kind, postID, "") {
			// The user un-toggled but the delete never landed; re-issue it
			// rather than resurrecting the interaction
			r.retryRemoval(ctx, kind, postID, "", report)
			return
		}
		r.materialize(kind, postID, report)

	case !serverPresent && localPresent:
		entry := r.cachedPresence(kind, postID)
		r.push(ctx, entry, report)

	case !serverPresent && !localPresent:
		// Converged absent; a leftover tombstone is settled
		r.cache.ClearTombstone(kind, postID, "")
	}
}

func (r *Reconciler) localPresence(kind models.Kind, postID string) bool {
	if kind == models.KindLike {
		return r.cache.IsLiked(postID)
	}
	return r.cache.IsSaved(postID)
}

// cachedPresence finds the local entry backing a push, preserving its
// recorded post type and timestamp
func (r *Reconciler) cachedPresence(kind models.Kind, postID string) models.Interaction {
	for _, in := range r.cache.Interactions() {
		if in.Kind() == kind && in.Post() == postID {
			return in
		}
	}
	return nil
}

// pullOrRetireRemoval handles a server-present interaction during a full run
func (r *Reconciler) pullOrRetireRemoval(ctx context.Context, kind models.Kind, postID, commentID string, serverEntry models.Interaction, report *Report) {
	var localPresent bool
	switch kind {
	case models.KindLike:
		localPresent = r.cache.IsLiked(postID)
	case models.KindSave:
		localPresent = r.cache.IsSaved(postID)
	case models.KindCommentLike:
		localPresent = r.cache.IsCommentLiked(commentID)
	}
	if localPresent {
		return
	}

	if r.cache.HasTombstone(kind, postID, commentID) {
		r.retryRemoval(ctx, kind, postID, commentID, report)
		return
	}

	// Server wins: covers cross-device actions and cache eviction
	r.cache.Add(serverEntry)
	report.Pulled++
	r.metrics.ReconcilerPulls.Inc()
}

// materialize records a server-side presence flag locally from a bulk status,
// where only the flag is known
func (r *Reconciler) materialize(kind models.Kind, postID string, report *Report) {
	userID := r.cache.UserID()
	switch kind {
	case models.KindLike:
		r.cache.Add(models.Like{UserID: userID, PostID: postID})
	case models.KindSave:
		r.cache.Add(models.Save{UserID: userID, PostID: postID})
	}
	report.Pulled++
	r.metrics.ReconcilerPulls.Inc()
}

// push re-issues a local-only interaction against the authoritative store.
// The local entry is never touched: a failure just leaves it for the next pass.
func (r *Reconciler) push(ctx context.Context, in models.Interaction, report *Report) {
	if in == nil {
		return
	}

	var err error
	switch v := in.(type) {
	case models.Like:
		_, err = r.api.CreatePresence(ctx, models.KindLike, v.UserID, v.PostType, v.PostID)
	case models.Save:
		_, err = r.api.CreatePresence(ctx, models.KindSave, v.UserID, v.PostType, v.PostID)
	case models.CommentLike:
		var postID string
		postID, err = r.api.LikeComment(ctx, v.UserID, v.CommentID)
		if err == nil && postID != "" {
			r.cache.SetCommentLikePost(v.CommentID, postID)
		}
	default:
		return
	}

	if err != nil {
		report.PushFailures++
		r.metrics.ReconcilerPushFails.Inc()
		r.log.WithError(err).WithField("kind", string(in.Kind())).Warn("push failed, kept locally")
		return
	}
	report.Pushed++
	r.metrics.ReconcilerPushes.Inc()
}

// retryRemoval re-issues a tombstoned removal
func (r *Reconciler) retryRemoval(ctx context.Context, kind models.Kind, postID, commentID string, report *Report) {
	userID := r.cache.UserID()

	var err error
	if kind == models.KindCommentLike {
		err = r.api.UnlikeComment(ctx, userID, commentID)
	} else {
		_, err = r.api.DeletePresence(ctx, kind, userID, postID)
	}

	if err != nil {
		report.PushFailures++
		r.metrics.ReconcilerPushFails.Inc()
		r.log.WithError(err).WithField("kind", string(kind)).Warn("removal retry failed, kept tombstoned")
		return
	}
	r.cache.ClearTombstone(kind, postID, commentID)
	report.RemovalsRetried++
	r.metrics.ReconcilerPushes.Inc()
}
