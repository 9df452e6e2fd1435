package gormstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"titanhub/internal/models"
	"titanhub/internal/store"
)

// 排序: 票数降序, 同票按创建先后 (id 升序)
const topOrder = "upvotes DESC, id ASC"

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	p.Upvotes = 0
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

func (s *Store) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	out := make([]models.Project, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) TopProjects(ctx context.Context, limit int) ([]models.Project, error) {
	out := make([]models.Project, 0, limit)
	if err := s.db.WithContext(ctx).Order(topOrder).Limit(limit).Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) UpvoteProject(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := bump(s.db.WithContext(ctx), &p, "upvotes", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateDiscussion(ctx context.Context, d *models.Discussion) error {
	d.Upvotes = 0
	d.CommentCount = 0
	if d.Status == "" {
		d.Status = models.StatusActive
	}
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(d).Error)
}

func (s *Store) GetDiscussion(ctx context.Context, id uint) (*models.Discussion, error) {
	var d models.Discussion
	if err := s.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) ListDiscussions(ctx context.Context) ([]models.Discussion, error) {
	out := make([]models.Discussion, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) TopDiscussions(ctx context.Context, limit int) ([]models.Discussion, error) {
	out := make([]models.Discussion, 0, limit)
	if err := s.db.WithContext(ctx).Order(topOrder).Limit(limit).Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) UpvoteDiscussion(ctx context.Context, id uint) (*models.Discussion, error) {
	var d models.Discussion
	if err := bump(s.db.WithContext(ctx), &d, "upvotes", id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) SetDiscussionStatus(ctx context.Context, id uint, status models.DiscussionStatus) (*models.Discussion, error) {
	var d models.Discussion
	res := s.db.WithContext(ctx).Model(&d).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		UpdateColumn("status", status)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

// CreateComment bumps the counter first: the UPDATE row-locks the
// discussion, and zero affected rows aborts before any insert.
func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Discussion{}).
			Where("id = ?", c.DiscussionID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1))
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return translate(tx.Omit(clause.Associations).Create(c).Error)
	})
}

func (s *Store) ListComments(ctx context.Context, discussionID uint) ([]models.Comment, error) {
	out := make([]models.Comment, 0)
	err := s.db.WithContext(ctx).
		Where("discussion_id = ?", discussionID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// RecountComments locks the discussion rows before counting. The UPDATE runs
// as its own statement so under READ COMMITTED it sees every comment whose
// transaction committed while we waited for the lock.
func (s *Store) RecountComments(ctx context.Context, discussionIDs []uint) error {
	if len(discussionIDs) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []uint
		// id 顺序加锁，避免并发批次互相死锁
		if err := tx.Model(&models.Discussion{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", discussionIDs).
			Order("id").
			Pluck("id", &locked).Error; err != nil {
			return err
		}
		if len(locked) == 0 {
			return nil
		}
		sub := tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.Comment{}).
			Select("COUNT(*)").
			Where("comments.discussion_id = discussions.id")
		return tx.Model(&models.Discussion{}).
			Where("id IN ?", locked).
			UpdateColumn("comment_count", sub).Error
	}))
}
