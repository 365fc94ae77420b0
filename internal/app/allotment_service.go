package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cimillas/channel-inventory/internal/allocation"
	"github.com/cimillas/channel-inventory/internal/clock"
	"github.com/cimillas/channel-inventory/internal/domain"
	"github.com/cimillas/channel-inventory/internal/keylock"
)

// Mutations pass versionAny to skip the optimistic version check. Only
// internal retries and sweeps use it; callers always supply the version they
// read.
const versionAny = -1

const maxRangeDays = 366

// AllotmentRepository is the persistence contract the allocation engine
// needs. Implementations must map a version mismatch in UpdateDaily to
// domain.ErrStaleVersion.
type AllotmentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetRoomType(ctx context.Context, roomTypeID string) (domain.RoomType, error)
	ListChannels(ctx context.Context, roomTypeID string) ([]domain.Channel, error)
	GetDailyForUpdate(ctx context.Context, roomTypeID string, date time.Time) (domain.DailyAllotment, error)
	ListDailyRange(ctx context.Context, roomTypeID string, from, to time.Time) ([]domain.DailyAllotment, error)
	InsertDaily(ctx context.Context, d domain.DailyAllotment) error
	UpdateDaily(ctx context.Context, d domain.DailyAllotment, expectedVersion int) error
	ListDatesWithAllocation(ctx context.Context, roomTypeID, channelName string, from time.Time) ([]time.Time, error)
}

// SettingsStore provides the tenant-wide defaults snapshot consumed by every
// engine operation.
type SettingsStore interface {
	Get(ctx context.Context) (domain.GlobalDefaults, error)
}

// EventRecorder receives outbound event records for the notification
// subsystem. Recording is best-effort: a failure is logged, never propagated.
type EventRecorder interface {
	Record(ctx context.Context, ev domain.AllotmentEvent) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, domain.AllotmentEvent) error { return nil }

// AllotmentService is the allocation engine. Every mutation is atomic with
// respect to one (roomTypeID, date): it runs inside the per-day guard and a
// storage transaction, re-evaluates warnings before committing, and bumps the
// day's version.
type AllotmentService struct {
	repo     AllotmentRepository
	settings SettingsStore
	events   EventRecorder
	demand   DemandSignal
	locks    *keylock.Map
	clock    clock.Clock
	log      *zap.Logger
}

type AllotmentServiceOption func(*AllotmentService)

// WithEventRecorder wires the outbound event sink.
func WithEventRecorder(r EventRecorder) AllotmentServiceOption {
	return func(s *AllotmentService) {
		if r != nil {
			s.events = r
		}
	}
}

// WithDemandSignal wires the forecasting source for the DYNAMIC method.
func WithDemandSignal(d DemandSignal) AllotmentServiceOption {
	return func(s *AllotmentService) {
		if d != nil {
			s.demand = d
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(log *zap.Logger) AllotmentServiceOption {
	return func(s *AllotmentService) {
		if log != nil {
			s.log = log
		}
	}
}

func NewAllotmentService(repo AllotmentRepository, settings SettingsStore, clk clock.Clock, opts ...AllotmentServiceOption) *AllotmentService {
	svc := &AllotmentService{
		repo:     repo,
		settings: settings,
		events:   nopRecorder{},
		demand:   NeutralDemand{},
		locks:    keylock.New(),
		clock:    clk,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type GetAllotmentInput struct {
	RoomTypeID string
	From       time.Time
	To         time.Time
}

// GetAllotment returns the room type's allocation state over a date range,
// materializing any date that has no record yet from the defaults and channel
// baselines.
func (s *AllotmentService) GetAllotment(ctx context.Context, in GetAllotmentInput) (domain.RoomTypeAllotment, error) {
	from, to := domain.DayOf(in.From), domain.DayOf(in.To)
	if to.Before(from) {
		return domain.RoomTypeAllotment{}, domain.ErrInvalidDateRange
	}
	if int(to.Sub(from).Hours()/24) >= maxRangeDays {
		return domain.RoomTypeAllotment{}, fmt.Errorf("range longer than %d days: %w", maxRangeDays, domain.ErrInvalidDateRange)
	}

	rt, err := s.repo.GetRoomType(ctx, in.RoomTypeID)
	if err != nil {
		return domain.RoomTypeAllotment{}, err
	}
	channels, err := s.repo.ListChannels(ctx, rt.ID)
	if err != nil {
		return domain.RoomTypeAllotment{}, err
	}
	defaults, err := s.settings.Get(ctx)
	if err != nil {
		return domain.RoomTypeAllotment{}, err
	}

	existing, err := s.repo.ListDailyRange(ctx, rt.ID, from, to)
	if err != nil {
		return domain.RoomTypeAllotment{}, err
	}

	days := make(map[string]domain.DailyAllotment, len(existing))
	var lastUpdated time.Time
	for _, d := range existing {
		days[domain.DayKey(d.Date)] = d
		if d.UpdatedAt.After(lastUpdated) {
			lastUpdated = d.UpdatedAt
		}
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := domain.DayKey(day)
		if _, ok := days[key]; ok {
			continue
		}
		d, err := s.materializeDay(ctx, rt, channels, defaults, day)
		if err != nil {
			return domain.RoomTypeAllotment{}, err
		}
		days[key] = d
		if d.UpdatedAt.After(lastUpdated) {
			lastUpdated = d.UpdatedAt
		}
	}

	return domain.RoomTypeAllotment{
		RoomTypeID:      rt.ID,
		Channels:        channels,
		Method:          s.methodFor(rt, defaults),
		DailyAllotments: days,
		LastUpdated:     lastUpdated,
	}, nil
}

type SetAllocationInput struct {
	RoomTypeID  string
	Date        time.Time
	ChannelName string
	Amount      int
	Version     int
}

// SetAllocation overwrites one channel's allocated count. Fails with
// ErrCapacityExceeded when the day would leave the admissible ceiling and
// overbooking room; succeeds with a warning when existing bookings already
// exceed the new amount, since booked guests cannot be revoked.
func (s *AllotmentService) SetAllocation(ctx context.Context, in SetAllocationInput) (domain.DailyAllotment, error) {
	if in.Amount < 0 {
		return domain.DailyAllotment{}, domain.ErrInvalidQuantity
	}

	d, err := s.mutateDaily(ctx, in.RoomTypeID, in.Date, in.Version, func(d *domain.DailyAllotment, g domain.GlobalDefaults) error {
		ca := d.Channel(in.ChannelName)
		if ca == nil {
			return fmt.Errorf("%s: %w", in.ChannelName, domain.ErrChannelNotFound)
		}

		proposed := d.AllocationVector()
		proposed[in.ChannelName] = in.Amount
		if ok, reason := allocation.Admit(*d, proposed, g); !ok {
			return fmt.Errorf("%s: %w", reason, domain.ErrCapacityExceeded)
		}

		ca.Allocated = in.Amount
		return nil
	})
	if err != nil {
		return domain.DailyAllotment{}, err
	}

	s.log.Info("allocation set",
		zap.String("room_type_id", in.RoomTypeID),
		zap.String("date", domain.DayKey(in.Date)),
		zap.String("channel", in.ChannelName),
		zap.Int("amount", in.Amount),
		zap.Int("version", d.Version),
	)
	return d, nil
}

type TransferInput struct {
	RoomTypeID  string
	Date        time.Time
	FromChannel string
	ToChannel   string
	Amount      int
	Version     int
}

// Transfer moves allocation between two channels on the same date in one
// step. Only unbooked units may move; the total allocated for the day never
// changes. Because the operation is a relative delta, a stale version is
// retried once against the fresh state.
func (s *AllotmentService) Transfer(ctx context.Context, in TransferInput) (domain.DailyAllotment, error) {
	if in.Amount <= 0 {
		return domain.DailyAllotment{}, domain.ErrInvalidQuantity
	}
	if in.FromChannel == in.ToChannel {
		return domain.DailyAllotment{}, domain.ErrSameChannel
	}

	move := func(d *domain.DailyAllotment, _ domain.GlobalDefaults) error {
		from := d.Channel(in.FromChannel)
		if from == nil {
			return fmt.Errorf("%s: %w", in.FromChannel, domain.ErrChannelNotFound)
		}
		to := d.Channel(in.ToChannel)
		if to == nil {
			return fmt.Errorf("%s: %w", in.ToChannel, domain.ErrChannelNotFound)
		}

		free := from.Allocated - from.Booked
		if in.Amount > free {
			return fmt.Errorf("%d requested from %s, %d unbooked: %w", in.Amount, in.FromChannel, free, domain.ErrInsufficientAllocation)
		}

		from.Allocated -= in.Amount
		to.Allocated += in.Amount
		return nil
	}

	d, err := s.mutateDaily(ctx, in.RoomTypeID, in.Date, in.Version, move)
	if errors.Is(err, domain.ErrStaleVersion) {
		s.log.Info("transfer raced with a concurrent edit, retrying against fresh state",
			zap.String("room_type_id", in.RoomTypeID),
			zap.String("date", domain.DayKey(in.Date)),
		)
		d, err = s.mutateDaily(ctx, in.RoomTypeID, in.Date, versionAny, move)
	}
	if err != nil {
		return domain.DailyAllotment{}, err
	}

	s.log.Info("allocation transferred",
		zap.String("room_type_id", in.RoomTypeID),
		zap.String("date", domain.DayKey(in.Date)),
		zap.String("from", in.FromChannel),
		zap.String("to", in.ToChannel),
		zap.Int("amount", in.Amount),
	)
	return d, nil
}

type BulkApplyInput struct {
	RoomTypeID  string
	Date        time.Time
	Allocations map[string]int
	Version     int
}

// BulkApply replaces every channel allocation for a date in one step.
// Channels absent from the vector are zeroed. The vector is validated and
// admitted as a whole: either all of it lands or none of it does.
func (s *AllotmentService) BulkApply(ctx context.Context, in BulkApplyInput) (domain.DailyAllotment, error) {
	return s.mutateDaily(ctx, in.RoomTypeID, in.Date, in.Version, func(d *domain.DailyAllotment, g domain.GlobalDefaults) error {
		for name, amount := range in.Allocations {
			if amount < 0 {
				return fmt.Errorf("%s: %w", name, domain.ErrInvalidQuantity)
			}
			if d.Channel(name) == nil {
				return fmt.Errorf("%s: %w", name, domain.ErrChannelNotFound)
			}
		}

		proposed := make(map[string]int, len(d.Channels))
		for _, c := range d.Channels {
			proposed[c.ChannelName] = in.Allocations[c.ChannelName]
		}
		if ok, reason := allocation.Admit(*d, proposed, g); !ok {
			return fmt.Errorf("%s: %w", reason, domain.ErrCapacityExceeded)
		}

		for i := range d.Channels {
			d.Channels[i].Allocated = proposed[d.Channels[i].ChannelName]
		}
		return nil
	})
}

type CopyForwardInput struct {
	RoomTypeID string
	FromDate   time.Time
	ToDate     time.Time
	Version    int // version of the destination date
}

// CopyForward applies the source date's allocation vector to the destination
// date. Booked and remaining counts are destination-specific and are not
// copied. The source must already exist; read paths never auto-create here.
func (s *AllotmentService) CopyForward(ctx context.Context, in CopyForwardInput) (domain.DailyAllotment, error) {
	from, to := domain.DayOf(in.FromDate), domain.DayOf(in.ToDate)
	if from.Equal(to) {
		return domain.DailyAllotment{}, domain.ErrInvalidDateRange
	}

	sources, err := s.repo.ListDailyRange(ctx, in.RoomTypeID, from, from)
	if err != nil {
		return domain.DailyAllotment{}, err
	}
	if len(sources) == 0 {
		return domain.DailyAllotment{}, fmt.Errorf("source date %s: %w", domain.DayKey(from), domain.ErrAllotmentNotFound)
	}

	return s.BulkApply(ctx, BulkApplyInput{
		RoomTypeID:  in.RoomTypeID,
		Date:        to,
		Allocations: sources[0].AllocationVector(),
		Version:     in.Version,
	})
}

// RefreshWarnings recomputes the warning list for a date without changing any
// allocation. Serialized with the other mutations so observers never see a
// stale list.
func (s *AllotmentService) RefreshWarnings(ctx context.Context, roomTypeID string, date time.Time) (domain.DailyAllotment, error) {
	return s.mutateDaily(ctx, roomTypeID, date, versionAny, func(*domain.DailyAllotment, domain.GlobalDefaults) error {
		return nil
	})
}

type ApplyBookingInput struct {
	RoomTypeID  string
	Date        time.Time
	ChannelName string
	Quantity    int // negative for cancellations
	Confirmed   bool
}

// ApplyBooking maintains the booked and held counters from the reservation
// stream. Confirming consumes held units first; a booking that pushes a
// channel past its allocation only raises a warning, since guests already
// booked cannot be un-booked by the allocation layer.
func (s *AllotmentService) ApplyBooking(ctx context.Context, in ApplyBookingInput) (domain.DailyAllotment, error) {
	if in.Quantity == 0 {
		return domain.DailyAllotment{}, domain.ErrInvalidQuantity
	}

	return s.mutateDaily(ctx, in.RoomTypeID, in.Date, versionAny, func(d *domain.DailyAllotment, _ domain.GlobalDefaults) error {
		ca := d.Channel(in.ChannelName)
		if ca == nil {
			return fmt.Errorf("%s: %w", in.ChannelName, domain.ErrChannelNotFound)
		}

		if !in.Confirmed {
			if ca.Held+in.Quantity < 0 {
				return domain.ErrInvalidQuantity
			}
			ca.Held += in.Quantity
			if in.Quantity > 0 {
				// Fresh unconfirmed inventory arms the release sweep again.
				ca.ReleasedAt = nil
			}
			return nil
		}

		if ca.Booked+in.Quantity < 0 {
			return domain.ErrInvalidQuantity
		}
		ca.Booked += in.Quantity
		if in.Quantity > 0 {
			consumed := in.Quantity
			if consumed > ca.Held {
				consumed = ca.Held
			}
			ca.Held -= consumed
		}
		return nil
	})
}

type ResolvePreviewInput struct {
	RoomTypeID string
	Date       time.Time
}

// ResolvePreview runs the allocation method resolver without touching any
// daily record, so operators can inspect targets before a BulkApply. The
// output is advisory: applying it still goes through the engine, which
// re-validates against current booked counts.
func (s *AllotmentService) ResolvePreview(ctx context.Context, in ResolvePreviewInput) (allocation.Plan, error) {
	rt, err := s.repo.GetRoomType(ctx, in.RoomTypeID)
	if err != nil {
		return allocation.Plan{}, err
	}
	channels, err := s.repo.ListChannels(ctx, rt.ID)
	if err != nil {
		return allocation.Plan{}, err
	}
	defaults, err := s.settings.Get(ctx)
	if err != nil {
		return allocation.Plan{}, err
	}

	method := s.methodFor(rt, defaults)
	var multipliers map[string]float64
	if method == domain.MethodDynamic {
		multipliers, err = s.demand.Multipliers(ctx, rt.ID, domain.DayOf(in.Date))
		if err != nil {
			return allocation.Plan{}, fmt.Errorf("demand signal: %w", err)
		}
	}

	return allocation.Resolve(method, s.inventoryFor(rt, defaults), channels, multipliers)
}

// RedistributeChannel moves a channel's unbooked allocation to survivor on
// every future date that still carries it. Booked units stay behind on the
// original entry. Used by the admin surface before a channel config is
// removed.
func (s *AllotmentService) RedistributeChannel(ctx context.Context, roomTypeID, channelName, survivor string) error {
	if channelName == survivor {
		return domain.ErrSameChannel
	}

	dates, err := s.repo.ListDatesWithAllocation(ctx, roomTypeID, channelName, domain.DayOf(s.clock.Now()))
	if err != nil {
		return err
	}

	for _, date := range dates {
		_, err := s.mutateDaily(ctx, roomTypeID, date, versionAny, func(d *domain.DailyAllotment, _ domain.GlobalDefaults) error {
			from := d.Channel(channelName)
			if from == nil {
				return nil
			}
			movable := from.Allocated - from.Booked
			if movable <= 0 {
				return nil
			}

			if d.Channel(survivor) == nil {
				// Appending may reallocate the slice, so look both entries up
				// again afterwards.
				d.Channels = append(d.Channels, domain.ChannelAllocation{ChannelName: survivor})
				from = d.Channel(channelName)
			}
			from.Allocated -= movable
			d.Channel(survivor).Allocated += movable
			return nil
		})
		if err != nil {
			return fmt.Errorf("redistribute %s on %s: %w", channelName, domain.DayKey(date), err)
		}
	}

	s.log.Info("channel redistributed",
		zap.String("room_type_id", roomTypeID),
		zap.String("from", channelName),
		zap.String("to", survivor),
		zap.Int("dates", len(dates)),
	)
	return nil
}

// mutateDaily is the single write path of the engine: acquire the per-day
// guard, snapshot the defaults, load or materialize the day inside a
// transaction, check the caller's version, apply fn, re-evaluate warnings and
// commit with a version bump.
func (s *AllotmentService) mutateDaily(ctx context.Context, roomTypeID string, date time.Time, expectedVersion int, fn func(*domain.DailyAllotment, domain.GlobalDefaults) error) (domain.DailyAllotment, error) {
	date = domain.DayOf(date)

	release, err := s.locks.Acquire(ctx, lockKey(roomTypeID, date))
	if err != nil {
		return domain.DailyAllotment{}, err
	}
	defer release()

	defaults, err := s.settings.Get(ctx)
	if err != nil {
		return domain.DailyAllotment{}, err
	}
	rt, err := s.repo.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return domain.DailyAllotment{}, err
	}
	channels, err := s.repo.ListChannels(ctx, rt.ID)
	if err != nil {
		return domain.DailyAllotment{}, err
	}

	var out domain.DailyAllotment
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		d, err := s.repo.GetDailyForUpdate(txCtx, rt.ID, date)
		if errors.Is(err, domain.ErrAllotmentNotFound) {
			d = s.newDaily(rt, channels, defaults, date)
			if err := s.repo.InsertDaily(txCtx, d); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if expectedVersion != versionAny && expectedVersion != d.Version {
			return fmt.Errorf("expected version %d, stored %d: %w", expectedVersion, d.Version, domain.ErrStaleVersion)
		}

		expected := d.Version
		if err := fn(&d, defaults); err != nil {
			return err
		}

		d.EvaluateWarnings(defaults)
		d.UpdatedAt = s.clock.Now()
		d.Version = expected + 1
		if err := s.repo.UpdateDaily(txCtx, d, expected); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return domain.DailyAllotment{}, err
	}

	s.emitWarningEvents(ctx, out, defaults)
	return out, nil
}

// materializeDay creates the first record for a date from the defaults and
// channel baselines. Races with a concurrent materialization resolve inside
// the transaction: the loser reads the winner's row.
func (s *AllotmentService) materializeDay(ctx context.Context, rt domain.RoomType, channels []domain.Channel, defaults domain.GlobalDefaults, date time.Time) (domain.DailyAllotment, error) {
	release, err := s.locks.Acquire(ctx, lockKey(rt.ID, date))
	if err != nil {
		return domain.DailyAllotment{}, err
	}
	defer release()

	var out domain.DailyAllotment
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		d, err := s.repo.GetDailyForUpdate(txCtx, rt.ID, date)
		if err == nil {
			out = d
			return nil
		}
		if !errors.Is(err, domain.ErrAllotmentNotFound) {
			return err
		}

		d = s.newDaily(rt, channels, defaults, date)
		if err := s.repo.InsertDaily(txCtx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return domain.DailyAllotment{}, err
	}
	return out, nil
}

func (s *AllotmentService) newDaily(rt domain.RoomType, channels []domain.Channel, defaults domain.GlobalDefaults, date time.Time) domain.DailyAllotment {
	total := s.inventoryFor(rt, defaults)

	// Materialization never consults the demand signal; DYNAMIC days start
	// from the neutral baseline until a resolve is applied explicitly.
	plan, err := allocation.Resolve(s.methodFor(rt, defaults), total, channels, nil)
	if err != nil {
		plan = allocation.Plan{Targets: map[string]int{}}
	}

	now := s.clock.Now()
	d := domain.DailyAllotment{
		ID:             newID(),
		RoomTypeID:     rt.ID,
		Date:           date,
		TotalInventory: total,
		Channels:       make([]domain.ChannelAllocation, 0, len(channels)),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, ch := range channels {
		d.Channels = append(d.Channels, domain.ChannelAllocation{
			ChannelName: ch.Name,
			Allocated:   plan.Targets[ch.Name],
		})
	}
	d.EvaluateWarnings(defaults)
	return d
}

func (s *AllotmentService) methodFor(rt domain.RoomType, defaults domain.GlobalDefaults) domain.AllocationMethod {
	if rt.Method != "" {
		return rt.Method
	}
	return defaults.DefaultAllocationMethod
}

func (s *AllotmentService) inventoryFor(rt domain.RoomType, defaults domain.GlobalDefaults) int {
	if rt.PhysicalRooms > 0 {
		return rt.PhysicalRooms
	}
	return defaults.TotalInventory
}

func (s *AllotmentService) emitWarningEvents(ctx context.Context, d domain.DailyAllotment, g domain.GlobalDefaults) {
	now := s.clock.Now()
	var events []domain.AllotmentEvent

	if capacity := g.MaxCapacity(d.TotalInventory); d.TotalAllocated() > capacity {
		events = append(events, domain.AllotmentEvent{
			ID:         newID(),
			RoomTypeID: d.RoomTypeID,
			Date:       d.Date,
			Type:       domain.EventCapacityWarning,
			Quantity:   d.TotalAllocated() - capacity,
			CreatedAt:  now,
		})
	}
	if d.TotalAllocated() > 0 {
		for _, c := range d.Channels {
			if c.Allocated == 0 {
				events = append(events, domain.AllotmentEvent{
					ID:          newID(),
					RoomTypeID:  d.RoomTypeID,
					Date:        d.Date,
					Type:        domain.EventChannelStarved,
					ChannelName: c.ChannelName,
					CreatedAt:   now,
				})
			}
		}
	}

	for _, ev := range events {
		if err := s.events.Record(ctx, ev); err != nil {
			s.log.Warn("failed to record allotment event",
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
		}
	}
}

func lockKey(roomTypeID string, date time.Time) string {
	return roomTypeID + "|" + domain.DayKey(date)
}
