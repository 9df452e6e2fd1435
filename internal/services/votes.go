package services

import (
	"context"

	"github.com/samber/oops"

	"titanhub/internal/models"
)

const (
	DefaultTopLimit = 3
	MaxTopLimit     = 100
)

// ClampTopLimit forces limit into [1, MaxTopLimit].
func ClampTopLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxTopLimit {
		return MaxTopLimit
	}
	return limit
}

// UpvoteProject adds one upvote. Anyone may vote, any number of times.
func (s *ContentService) UpvoteProject(ctx context.Context, id uint) (*models.Project, error) {
	p, err := s.store.UpvoteProject(ctx, id)
	if err != nil {
		return nil, notFound(err, "Project", id)
	}
	s.invalidate(topProjectsNS)
	s.metrics.Upvote("project")
	emit(ctx, s.events, s.metrics, s.log, newEvent(EventContentUpvoted, "project", p.ID, 0,
		map[string]any{"upvotes": p.Upvotes}))
	return p, nil
}

func (s *ContentService) UpvoteDiscussion(ctx context.Context, id uint) (*models.Discussion, error) {
	d, err := s.store.UpvoteDiscussion(ctx, id)
	if err != nil {
		return nil, notFound(err, "Discussion", id)
	}
	s.invalidate(topDiscussionsNS)
	s.metrics.Upvote("discussion")
	emit(ctx, s.events, s.metrics, s.log, newEvent(EventContentUpvoted, "discussion", d.ID, 0,
		map[string]any{"upvotes": d.Upvotes}))
	return d, nil
}

// TopProjects returns the most upvoted projects, ties broken by creation
// order.
func (s *ContentService) TopProjects(ctx context.Context, limit int) ([]models.Project, error) {
	limit = ClampTopLimit(limit)
	return cachedTop(s, topProjectsNS, limit, func() ([]models.Project, error) {
		return s.store.TopProjects(ctx, limit)
	})
}

func (s *ContentService) TopDiscussions(ctx context.Context, limit int) ([]models.Discussion, error) {
	limit = ClampTopLimit(limit)
	return cachedTop(s, topDiscussionsNS, limit, func() ([]models.Discussion, error) {
		return s.store.TopDiscussions(ctx, limit)
	})
}

// cachedTop serves a top list from the cache. The key is taken before
// loading so a write racing the load retires the entry it would store.
func cachedTop[T any](s *ContentService, ns string, limit int, load func() ([]T, error)) ([]T, error) {
	if s.cache == nil {
		out, err := load()
		if err != nil {
			return nil, oops.With("operation", ns).Wrap(err)
		}
		return out, nil
	}

	key := s.cache.Key(ns, limit)
	if v, ok := s.cache.Get(key).([]T); ok {
		s.metrics.Cache(true)
		return clone(v), nil
	}
	s.metrics.Cache(false)

	out, err := load()
	if err != nil {
		return nil, oops.With("operation", ns).Wrap(err)
	}
	s.cache.Set(key, clone(out), s.cacheTTL)
	return out, nil
}

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
