package gormstore

import (
	"context"

	"github.com/samber/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"titanhub/internal/models"
)

func (s *Store) GetStats(ctx context.Context, seedStars int) (*models.Stats, error) {
	st := models.Stats{ID: models.StatsID}
	err := s.db.WithContext(ctx).
		Attrs(models.Stats{GithubStars: seedStars}).
		FirstOrCreate(&st, models.Stats{ID: models.StatsID}).Error
	if err != nil {
		// 并发首次读取时另一方可能已插入
		if retry := s.db.WithContext(ctx).First(&st, models.StatsID).Error; retry == nil {
			return &st, nil
		}
		return nil, translate(err)
	}
	return &st, nil
}

// IncrementStat is a single upsert, so the row is created lazily and the
// increment is atomic even when the row does not exist yet.
func (s *Store) IncrementStat(ctx context.Context, kind models.StatKind, seedStars int) (*models.Stats, error) {
	col := kind.Column()
	if col == "" {
		return nil, oops.Code("STATS_UNKNOWN_KIND").With("kind", kind).Errorf("unknown stat kind %q", kind)
	}

	row := models.Stats{ID: models.StatsID, GithubStars: seedStars}
	row.Bump(kind)

	var out models.Stats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{col: gorm.Expr("stats." + col + " + 1")}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return tx.First(&out, models.StatsID).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}
