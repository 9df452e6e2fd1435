package session

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"titanhub/internal/models"
)

// GormStore keeps sessions in the postgres sessions table.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Get(ctx context.Context, id string) (uint, bool, error) {
	var row models.Session
	err := s.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, s.now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("SESSION_STORE_FAILED").Wrap(err)
	}
	return row.PrincipalID, true, nil
}

func (s *GormStore) Set(ctx context.Context, id string, principalID uint, ttl time.Duration) error {
	row := models.Session{ID: id, PrincipalID: principalID, ExpiresAt: s.now().Add(ttl)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"principal_id", "expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return oops.Code("SESSION_STORE_FAILED").Wrap(err)
	}
	return nil
}

func (s *GormStore) Destroy(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error; err != nil {
		return oops.Code("SESSION_STORE_FAILED").Wrap(err)
	}
	return nil
}

// Sweep deletes expired rows.
func (s *GormStore) Sweep(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, oops.Code("SESSION_STORE_FAILED").Wrap(res.Error)
	}
	return res.RowsAffected, nil
}
