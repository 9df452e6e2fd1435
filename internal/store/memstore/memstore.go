// Package memstore is an in-process implementation of store.Store. All
// counters are mutated under one mutex so concurrent upvotes never lose
// updates.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"titanhub/internal/models"
	"titanhub/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	users       map[uint]*models.User
	projects    map[uint]*models.Project
	discussions map[uint]*models.Discussion
	comments    map[uint]*models.Comment
	stats       *models.Stats

	nextUser       uint
	nextProject    uint
	nextDiscussion uint
	nextComment    uint

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:          make(map[uint]*models.User),
		projects:       make(map[uint]*models.Project),
		discussions:    make(map[uint]*models.Discussion),
		comments:       make(map[uint]*models.Comment),
		nextUser:       1,
		nextProject:    1,
		nextDiscussion: 1,
		nextComment:    1,
		now:            time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// Users

func (s *Store) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u := s.findUsernameLocked(username); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) findUsernameLocked(username string) *models.User {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u
		}
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findUsernameLocked(u.Username) != nil {
		return store.ErrDuplicate
	}
	u.ID = s.nextUser
	s.nextUser++
	u.CreatedAt = s.now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) UpdateUser(_ context.Context, id uint, upd models.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	upd.Apply(u)
	cp := *u
	return &cp, nil
}

// SetAdmin flips the admin flag; used by tests to model a role change
// made directly in the database.
func (s *Store) SetAdmin(id uint, admin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsAdmin = admin
	}
}

// DeleteUser removes a user and everything it owns, like the FK cascade.
func (s *Store) DeleteUser(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	for pid, p := range s.projects {
		if p.UserID == id {
			delete(s.projects, pid)
		}
	}
	for did, d := range s.discussions {
		if d.UserID == id {
			delete(s.discussions, did)
		}
	}
	for cid, c := range s.comments {
		if c.UserID == id {
			delete(s.comments, cid)
			if d, ok := s.discussions[c.DiscussionID]; ok {
				d.CommentCount--
			}
		} else if _, ok := s.discussions[c.DiscussionID]; !ok {
			delete(s.comments, cid)
		}
	}
}

func (s *Store) ListUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Projects

func (s *Store) CreateProject(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.UserID]; !ok {
		return store.ErrNotFound
	}
	p.ID = s.nextProject
	s.nextProject++
	p.Upvotes = 0
	p.CreatedAt = s.now()
	cp := copyProject(p)
	s.projects[p.ID] = &cp
	return nil
}

// copyProject also copies TechStack so callers never share the stored slice.
func copyProject(p *models.Project) models.Project {
	cp := *p
	cp.TechStack = slices.Clone(p.TechStack)
	return cp
}

func (s *Store) GetProject(_ context.Context, id uint) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := copyProject(p)
	return &cp, nil
}

func (s *Store) ListProjects(context.Context) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, copyProject(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) TopProjects(ctx context.Context, limit int) ([]models.Project, error) {
	out, _ := s.ListProjects(ctx)
	// ListProjects is id ordered, a stable sort keeps that for ties
	sort.SliceStable(out, func(i, j int) bool { return out[i].Upvotes > out[j].Upvotes })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpvoteProject(_ context.Context, id uint) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Upvotes++
	cp := copyProject(p)
	return &cp, nil
}

// Discussions

func (s *Store) CreateDiscussion(_ context.Context, d *models.Discussion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[d.UserID]; !ok {
		return store.ErrNotFound
	}
	d.ID = s.nextDiscussion
	s.nextDiscussion++
	d.Upvotes = 0
	d.CommentCount = 0
	if d.Status == "" {
		d.Status = models.StatusActive
	}
	d.CreatedAt = s.now()
	cp := *d
	s.discussions[d.ID] = &cp
	return nil
}

func (s *Store) GetDiscussion(_ context.Context, id uint) (*models.Discussion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.discussions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Store) ListDiscussions(context.Context) ([]models.Discussion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Discussion, 0, len(s.discussions))
	for _, d := range s.discussions {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) TopDiscussions(ctx context.Context, limit int) ([]models.Discussion, error) {
	out, _ := s.ListDiscussions(ctx)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Upvotes > out[j].Upvotes })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpvoteDiscussion(_ context.Context, id uint) (*models.Discussion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.discussions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	d.Upvotes++
	cp := *d
	return &cp, nil
}

func (s *Store) SetDiscussionStatus(_ context.Context, id uint, status models.DiscussionStatus) (*models.Discussion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.discussions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	d.Status = status
	cp := *d
	return &cp, nil
}

// Comments

func (s *Store) CreateComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.discussions[c.DiscussionID]
	if !ok {
		return store.ErrNotFound
	}
	c.ID = s.nextComment
	s.nextComment++
	c.CreatedAt = s.now()
	cp := *c
	s.comments[c.ID] = &cp
	d.CommentCount++
	return nil
}

func (s *Store) ListComments(_ context.Context, discussionID uint) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.DiscussionID == discussionID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RecountComments(_ context.Context, discussionIDs []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range discussionIDs {
		d, ok := s.discussions[id]
		if !ok {
			continue
		}
		n := 0
		for _, c := range s.comments {
			if c.DiscussionID == id {
				n++
			}
		}
		d.CommentCount = n
	}
	return nil
}

// CorruptCommentCount overwrites a counter; lets tests exercise the
// reconciler.
func (s *Store) CorruptCommentCount(id uint, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.discussions[id]; ok {
		d.CommentCount = n
	}
}

// Stats

func (s *Store) GetStats(_ context.Context, seedStars int) (*models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureStatsLocked(seedStars)
	cp := *s.stats
	return &cp, nil
}

func (s *Store) IncrementStat(_ context.Context, kind models.StatKind, seedStars int) (*models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureStatsLocked(seedStars)
	s.stats.Bump(kind)
	cp := *s.stats
	return &cp, nil
}

func (s *Store) ensureStatsLocked(seedStars int) {
	if s.stats == nil {
		s.stats = &models.Stats{ID: models.StatsID, GithubStars: seedStars}
	}
}
