package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cimillas/channel-inventory/internal/clock"
	"github.com/cimillas/channel-inventory/internal/domain"
)

// ReleaseCandidate names a day that may hold unconfirmed inventory eligible
// for release.
type ReleaseCandidate struct {
	RoomTypeID string
	Date       time.Time
}

type ReleaseRepository interface {
	ListReleaseCandidates(ctx context.Context, from, to time.Time) ([]ReleaseCandidate, error)
}

// ReleaseService sweeps unconfirmed held inventory back to the direct channel
// once a stay date enters the release window. Sweeps are idempotent: released
// channel entries are stamped and skipped on later passes.
type ReleaseService struct {
	repo     ReleaseRepository
	settings SettingsStore
	allot    *AllotmentService
	clock    clock.Clock
	log      *zap.Logger
}

func NewReleaseService(repo ReleaseRepository, settings SettingsStore, allot *AllotmentService, clk clock.Clock, log *zap.Logger) *ReleaseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReleaseService{
		repo:     repo,
		settings: settings,
		allot:    allot,
		clock:    clk,
		log:      log,
	}
}

// Sweep runs one release pass and returns the number of units released.
func (s *ReleaseService) Sweep(ctx context.Context) (int, error) {
	defaults, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	from := domain.DayOf(now)
	to := domain.DayOf(now.Add(time.Duration(defaults.ReleaseWindow) * time.Hour))

	candidates, err := s.repo.ListReleaseCandidates(ctx, from, to)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, c := range candidates {
		events, err := s.allot.ReleaseHeld(ctx, c.RoomTypeID, c.Date)
		if err != nil {
			s.log.Warn("release sweep failed for date",
				zap.String("room_type_id", c.RoomTypeID),
				zap.String("date", domain.DayKey(c.Date)),
				zap.Error(err),
			)
			continue
		}
		for _, ev := range events {
			released += ev.Quantity
		}
	}

	if released > 0 {
		s.log.Info("release sweep completed",
			zap.Int("candidates", len(candidates)),
			zap.Int("released", released),
		)
	}
	return released, nil
}

// Run sweeps on a ticker until ctx is cancelled. AutoRelease is re-read from
// the settings each pass, so flipping it takes effect without a restart.
func (s *ReleaseService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			defaults, err := s.settings.Get(ctx)
			if err != nil {
				s.log.Warn("release sweep skipped, settings unavailable", zap.Error(err))
				continue
			}
			if !defaults.AutoRelease {
				continue
			}
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Warn("release sweep failed", zap.Error(err))
			}
		}
	}
}

// ReleaseHeld sweeps a single day's unconfirmed held units. Held inventory
// moves to the DIRECT channel when one exists; otherwise the holding channel
// shrinks and the units return to the unallocated pool. A day with nothing to
// release is left untouched, version included.
func (s *AllotmentService) ReleaseHeld(ctx context.Context, roomTypeID string, date time.Time) ([]domain.AllotmentEvent, error) {
	date = domain.DayOf(date)

	release, err := s.locks.Acquire(ctx, lockKey(roomTypeID, date))
	if err != nil {
		return nil, err
	}
	defer release()

	defaults, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	var events []domain.AllotmentEvent
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		d, err := s.repo.GetDailyForUpdate(txCtx, roomTypeID, date)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		changed := false
		for i := range d.Channels {
			c := &d.Channels[i]
			if c.Held <= 0 || c.ReleasedAt != nil {
				continue
			}

			qty := c.Held
			if free := c.Allocated - c.Booked; qty > free {
				qty = free
			}
			if qty < 0 {
				qty = 0
			}

			if qty > 0 && c.ChannelName != string(domain.ChannelDirect) {
				if direct := d.Channel(string(domain.ChannelDirect)); direct != nil {
					c.Allocated -= qty
					direct.Allocated += qty
				} else {
					c.Allocated -= qty
				}
			}

			stamp := now
			c.Held = 0
			c.ReleasedAt = &stamp
			changed = true

			events = append(events, domain.AllotmentEvent{
				ID:          newID(),
				RoomTypeID:  roomTypeID,
				Date:        date,
				Type:        domain.EventReleased,
				ChannelName: c.ChannelName,
				Quantity:    qty,
				CreatedAt:   now,
			})
		}

		if !changed {
			return nil
		}

		expected := d.Version
		d.EvaluateWarnings(defaults)
		d.UpdatedAt = now
		d.Version = expected + 1
		return s.repo.UpdateDaily(txCtx, d, expected)
	})
	if err != nil {
		events = nil
		if errors.Is(err, domain.ErrAllotmentNotFound) {
			return nil, nil
		}
		return nil, err
	}

	for _, ev := range events {
		if err := s.events.Record(ctx, ev); err != nil {
			s.log.Warn("failed to record release event",
				zap.String("channel", ev.ChannelName),
				zap.Error(err),
			)
		}
	}
	return events, nil
}
