package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"titanhub/internal/apperror"
	"titanhub/internal/metrics"
	"titanhub/internal/models"
	"titanhub/internal/store"
	"titanhub/internal/utils"
)

// Cache namespaces of the top lists.
const (
	topProjectsNS    = "top:projects"
	topDiscussionsNS = "top:discussions"
)

type ProjectInput struct {
	Title         string           `json:"title" validate:"required,max=200"`
	Description   string           `json:"description" validate:"required,max=10000"`
	TechStack     models.TechStack `json:"techStack" validate:"max=30,dive,max=50"`
	CoverImageURL string           `json:"coverImageUrl" validate:"max=2048"`
}

type DiscussionInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=20000"`
	Tag         string `json:"tag" validate:"required,max=50"`
	ImageURL    string `json:"imageUrl" validate:"max=2048"`
}

type CommentInput struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// DiscussionView is a discussion plus its rendered, sanitized description.
type DiscussionView struct {
	models.Discussion
	DescriptionHTML string `json:"descriptionHtml"`
}

type ContentOptions struct {
	// Cache holds top lists; nil disables caching.
	Cache    *utils.TTLCache
	CacheTTL time.Duration
	// Reconciler is told about every discussion a comment write touched.
	Reconciler *Reconciler
}

// ContentService covers projects, discussions, comments and their votes.
type ContentService struct {
	store      store.Store
	stats      *StatsService
	cache      *utils.TTLCache
	cacheTTL   time.Duration
	reconciler *Reconciler
	events     Publisher
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewContentService(d Deps, stats *StatsService, opts ContentOptions) *ContentService {
	d = d.withDefaults()
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	return &ContentService{
		store:      d.Store,
		stats:      stats,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		reconciler: opts.Reconciler,
		events:     d.Events,
		metrics:    d.Metrics,
		log:        d.Logger,
	}
}

func (s *ContentService) invalidate(ns string) {
	if s.cache != nil {
		s.cache.Invalidate(ns)
	}
}

// Projects

func (s *ContentService) CreateProject(ctx context.Context, actor *models.User, in ProjectInput) (*models.Project, error) {
	if actor == nil {
		return nil, apperror.Unauthenticated()
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.CoverImageURL = strings.TrimSpace(in.CoverImageURL)
	in.TechStack = models.NormalizeTechStack(in.TechStack...)
	if err := checkInput(&in); err != nil {
		return nil, err
	}

	p := &models.Project{
		UserID:        actor.ID,
		Title:         in.Title,
		Description:   in.Description,
		TechStack:     in.TechStack,
		CoverImageURL: in.CoverImageURL,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, notFound(err, "User", actor.ID)
	}

	s.invalidate(topProjectsNS)
	s.stats.record(ctx, models.StatProjects)
	emit(ctx, s.events, s.metrics, s.log, newEvent(EventProjectCreated, "project", p.ID, actor.ID,
		map[string]any{"title": p.Title}))
	return p, nil
}

func (s *ContentService) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, notFound(err, "Project", id)
	}
	return p, nil
}

func (s *ContentService) ListProjects(ctx context.Context) ([]models.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, oops.With("operation", "list projects").Wrap(err)
	}
	return projects, nil
}

// Discussions

func (s *ContentService) CreateDiscussion(ctx context.Context, actor *models.User, in DiscussionInput) (*DiscussionView, error) {
	if actor == nil {
		return nil, apperror.Unauthenticated()
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Tag = strings.TrimSpace(in.Tag)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := checkInput(&in); err != nil {
		return nil, err
	}

	d := &models.Discussion{
		UserID:      actor.ID,
		Title:       in.Title,
		Description: in.Description,
		Tag:         in.Tag,
		ImageURL:    in.ImageURL,
		Status:      models.StatusActive,
	}
	if err := s.store.CreateDiscussion(ctx, d); err != nil {
		return nil, notFound(err, "User", actor.ID)
	}

	s.invalidate(topDiscussionsNS)
	s.stats.record(ctx, models.StatDiscussions)
	emit(ctx, s.events, s.metrics, s.log, newEvent(EventDiscussionCreated, "discussion", d.ID, actor.ID,
		map[string]any{"title": d.Title, "tag": d.Tag}))
	return view(d), nil
}

func view(d *models.Discussion) *DiscussionView {
	return &DiscussionView{Discussion: *d, DescriptionHTML: utils.RenderMarkdown(d.Description)}
}

func (s *ContentService) GetDiscussion(ctx context.Context, id uint) (*DiscussionView, error) {
	d, err := s.store.GetDiscussion(ctx, id)
	if err != nil {
		return nil, notFound(err, "Discussion", id)
	}
	return view(d), nil
}

func (s *ContentService) ListDiscussions(ctx context.Context) ([]models.Discussion, error) {
	discussions, err := s.store.ListDiscussions(ctx)
	if err != nil {
		return nil, oops.With("operation", "list discussions").Wrap(err)
	}
	return discussions, nil
}

// SetDiscussionStatus is reserved to admins.
func (s *ContentService) SetDiscussionStatus(ctx context.Context, actor *models.User, id uint, status string) (*models.Discussion, error) {
	if actor == nil {
		return nil, apperror.Unauthenticated()
	}
	if !actor.IsAdmin {
		return nil, apperror.Forbidden()
	}
	st := models.DiscussionStatus(strings.TrimSpace(status))
	if !st.Valid() {
		return nil, apperror.InvalidArgument("Invalid status")
	}

	d, err := s.store.SetDiscussionStatus(ctx, id, st)
	if err != nil {
		return nil, notFound(err, "Discussion", id)
	}
	s.invalidate(topDiscussionsNS)
	emit(ctx, s.events, s.metrics, s.log, newEvent(EventStatusChanged, "discussion", d.ID, actor.ID,
		map[string]any{"status": string(d.Status)}))
	return d, nil
}

// Comments

// AddComment stores the comment text as written (trimmed) and bumps the discussion's
// comment count atomically with it.
func (s *ContentService) AddComment(ctx context.Context, actor *models.User, discussionID uint, in CommentInput) (*models.Comment, error) {
	if actor == nil {
		return nil, apperror.Unauthenticated()
	}
	in.Content = strings.TrimSpace(in.Content)
	if err := checkInput(&in); err != nil {
		return nil, err
	}

	c := &models.Comment{DiscussionID: discussionID, UserID: actor.ID, Content: in.Content}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, notFound(err, "Discussion", discussionID)
	}

	s.invalidate(topDiscussionsNS)
	s.reconciler.Schedule(discussionID)
	emit(ctx, s.events, s.metrics, s.log, newEvent(EventCommentCreated, "discussion", discussionID, actor.ID,
		map[string]any{"commentId": c.ID}))
	return c, nil
}

// ListComments returns the comments of a discussion, oldest first. An
// unknown discussion simply has none.
func (s *ContentService) ListComments(ctx context.Context, discussionID uint) ([]models.Comment, error) {
	comments, err := s.store.ListComments(ctx, discussionID)
	if err != nil {
		return nil, oops.With("operation", "list comments", "discussion_id", discussionID).Wrap(err)
	}
	return comments, nil
}
