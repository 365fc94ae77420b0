package app

import (
	"context"
	"errors"
	"testing"

	"github.com/cimillas/channel-inventory/internal/clock"
	"github.com/cimillas/channel-inventory/internal/domain"
)

type fakeSettingsRepo struct {
	stored  domain.GlobalDefaults
	saveErr error
	saves   int
}

func (f *fakeSettingsRepo) Get(context.Context) (domain.GlobalDefaults, error) {
	return f.stored, nil
}

func (f *fakeSettingsRepo) Save(_ context.Context, g domain.GlobalDefaults) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored = g
	f.saves++
	return nil
}

func TestSettingsService_SaveSettings(t *testing.T) {
	t.Parallel()

	t.Run("stamps updated_at and persists", func(t *testing.T) {
		repo := &fakeSettingsRepo{}
		svc := NewSettingsService(repo, clock.NewFixed(testNow))

		got, err := svc.SaveSettings(context.Background(), testDefaults())
		if err != nil {
			t.Fatalf("save settings: %v", err)
		}
		if got.UpdatedAt != testNow {
			t.Fatalf("expected updated_at %v, got %v", testNow, got.UpdatedAt)
		}
		if repo.saves != 1 {
			t.Fatalf("expected one save, got %d", repo.saves)
		}
	})

	t.Run("rejects out-of-range settings without persisting", func(t *testing.T) {
		repo := &fakeSettingsRepo{}
		svc := NewSettingsService(repo, clock.NewFixed(testNow))

		bad := testDefaults()
		bad.OverbookingLimit = 80
		_, err := svc.SaveSettings(context.Background(), bad)
		if !errors.Is(err, domain.ErrInvalidSettings) {
			t.Fatalf("expected ErrInvalidSettings, got %v", err)
		}
		if repo.saves != 0 {
			t.Fatalf("expected no save, got %d", repo.saves)
		}
	})
}
