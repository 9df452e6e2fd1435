package services

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"titanhub/internal/models"
	"titanhub/internal/store"
)

// StatsService maintains the platform-wide counters.
type StatsService struct {
	store     store.StatsStore
	seedStars int
	log       *slog.Logger
}

func NewStatsService(d Deps, seedStars int) *StatsService {
	d = d.withDefaults()
	return &StatsService{store: d.Store, seedStars: seedStars, log: d.Logger}
}

// RecordCreation bumps the counter for kind by exactly one. The row is
// created on first use.
func (s *StatsService) RecordCreation(ctx context.Context, kind models.StatKind) error {
	if kind.Column() == "" {
		return oops.Code("STATS_UNKNOWN_KIND").With("kind", kind).Errorf("unknown stat kind %q", kind)
	}
	if _, err := s.store.IncrementStat(ctx, kind, s.seedStars); err != nil {
		return oops.With("kind", kind).Wrap(err)
	}
	return nil
}

// record is RecordCreation for callers whose own write already succeeded:
// a counter failure is logged, not returned.
func (s *StatsService) record(ctx context.Context, kind models.StatKind) {
	if err := s.RecordCreation(ctx, kind); err != nil {
		s.log.ErrorContext(ctx, "stats update failed", "kind", kind, "error", err)
	}
}

func (s *StatsService) GetStats(ctx context.Context) (*models.Stats, error) {
	st, err := s.store.GetStats(ctx, s.seedStars)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	return st, nil
}
