// Package store declares the persistence contracts of the platform.
// Implementations live in gormstore (postgres) and memstore (in process).
package store

import (
	"context"
	"errors"

	"titanhub/internal/models"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("store: duplicate")
)

type UserStore interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, id uint, upd models.ProfileUpdate) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id uint) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	// TopProjects orders by upvotes descending, ties by ascending id.
	TopProjects(ctx context.Context, limit int) ([]models.Project, error)
	// UpvoteProject atomically adds one upvote and returns the new row.
	UpvoteProject(ctx context.Context, id uint) (*models.Project, error)
}

type DiscussionStore interface {
	CreateDiscussion(ctx context.Context, d *models.Discussion) error
	GetDiscussion(ctx context.Context, id uint) (*models.Discussion, error)
	ListDiscussions(ctx context.Context) ([]models.Discussion, error)
	TopDiscussions(ctx context.Context, limit int) ([]models.Discussion, error)
	UpvoteDiscussion(ctx context.Context, id uint) (*models.Discussion, error)
	SetDiscussionStatus(ctx context.Context, id uint, status models.DiscussionStatus) (*models.Discussion, error)
}

type CommentStore interface {
	// CreateComment inserts c and bumps its discussion's comment count in
	// one transaction. ErrNotFound leaves nothing behind.
	CreateComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, discussionID uint) ([]models.Comment, error)
	// RecountComments resets comment_count from the comment rows.
	RecountComments(ctx context.Context, discussionIDs []uint) error
}

type StatsStore interface {
	// GetStats returns the singleton row, creating it with the seed if absent.
	GetStats(ctx context.Context, seedStars int) (*models.Stats, error)
	// IncrementStat bumps one counter, creating the row if absent.
	IncrementStat(ctx context.Context, kind models.StatKind, seedStars int) (*models.Stats, error)
}

// Store bundles every contract; both implementations satisfy it.
type Store interface {
	UserStore
	ProjectStore
	DiscussionStore
	CommentStore
	StatsStore
	Ping(ctx context.Context) error
}
