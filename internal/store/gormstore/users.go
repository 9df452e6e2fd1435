package gormstore

import (
	"context"

	"gorm.io/gorm/clause"

	"titanhub/internal/models"
	"titanhub/internal/store"
)

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("lower(username) = lower(?)", username).
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) UpdateUser(ctx context.Context, id uint, upd models.ProfileUpdate) (*models.User, error) {
	var u models.User
	if cols := upd.Columns(); len(cols) > 0 {
		res := s.db.WithContext(ctx).Model(&u).
			Clauses(clause.Returning{}).
			Where("id = ?", id).
			Updates(cols)
		if res.Error != nil {
			return nil, translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
		return &u, nil
	}
	return s.GetUser(ctx, id)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}
