package app

import (
	"context"

	"github.com/cimillas/channel-inventory/internal/clock"
	"github.com/cimillas/channel-inventory/internal/domain"
)

type SettingsRepository interface {
	Get(ctx context.Context) (domain.GlobalDefaults, error)
	Save(ctx context.Context, g domain.GlobalDefaults) error
}

// SettingsService owns the tenant-wide defaults row. Changes apply to daily
// allotments materialized after the save; existing records keep the inventory
// they were created with.
type SettingsService struct {
	repo  SettingsRepository
	clock clock.Clock
}

func NewSettingsService(repo SettingsRepository, clk clock.Clock) *SettingsService {
	return &SettingsService{
		repo:  repo,
		clock: clk,
	}
}

func (s *SettingsService) GetSettings(ctx context.Context) (domain.GlobalDefaults, error) {
	return s.repo.Get(ctx)
}

func (s *SettingsService) SaveSettings(ctx context.Context, g domain.GlobalDefaults) (domain.GlobalDefaults, error) {
	if err := g.Validate(); err != nil {
		return domain.GlobalDefaults{}, err
	}
	g.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, g); err != nil {
		return domain.GlobalDefaults{}, err
	}
	return g, nil
}
