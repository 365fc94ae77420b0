package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/channel-inventory/internal/clock"
	"github.com/cimillas/channel-inventory/internal/domain"
)

// parseDecimal treats an empty string as zero; rates and commissions are
// optional channel attributes.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

type AdminRepository interface {
	CreateRoomType(ctx context.Context, rt domain.RoomType) error
	ListRoomTypes(ctx context.Context) ([]domain.RoomType, error)
	GetRoomType(ctx context.Context, roomTypeID string) (domain.RoomType, error)
	CreateChannel(ctx context.Context, ch domain.Channel) error
	UpdateChannel(ctx context.Context, ch domain.Channel) error
	DeleteChannel(ctx context.Context, roomTypeID, channelName string) error
	ListChannels(ctx context.Context, roomTypeID string) ([]domain.Channel, error)
	HasFutureAllocation(ctx context.Context, roomTypeID, channelName string, from time.Time) (bool, error)
}

// ChannelRedistributor moves a channel's future allocation to a surviving
// channel before the config row is removed. Satisfied by AllotmentService.
type ChannelRedistributor interface {
	RedistributeChannel(ctx context.Context, roomTypeID, channelName, survivor string) error
}

// AdminService manages the room type and channel catalog. Daily allocation
// state is the engine's; the admin surface only touches configuration, and
// delegates to the redistributor when a delete needs to move live inventory.
type AdminService struct {
	repo     AdminRepository
	settings SettingsStore
	redist   ChannelRedistributor
	clock    clock.Clock
}

func NewAdminService(repo AdminRepository, settings SettingsStore, redist ChannelRedistributor, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:     repo,
		settings: settings,
		redist:   redist,
		clock:    clk,
	}
}

type CreateRoomTypeInput struct {
	Name          string
	PhysicalRooms int
	Method        domain.AllocationMethod
}

func (s *AdminService) CreateRoomType(ctx context.Context, in CreateRoomTypeInput) (domain.RoomType, error) {
	if in.Name == "" {
		return domain.RoomType{}, domain.ErrRoomTypeNameRequired
	}
	if in.PhysicalRooms < 1 || in.PhysicalRooms > 1000 {
		return domain.RoomType{}, domain.ErrInvalidRoomCount
	}
	if in.Method != "" && !in.Method.Valid() {
		return domain.RoomType{}, domain.ErrUnknownMethod
	}

	rt := domain.RoomType{
		ID:            newID(),
		Name:          in.Name,
		PhysicalRooms: in.PhysicalRooms,
		Method:        in.Method,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.CreateRoomType(ctx, rt); err != nil {
		return domain.RoomType{}, err
	}
	return rt, nil
}

func (s *AdminService) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	return s.repo.ListRoomTypes(ctx)
}

type ChannelInput struct {
	RoomTypeID   string
	Name         string
	Type         domain.ChannelType
	Allocation   int
	Priority     int
	Commission   string
	NightlyRate  string
	Restrictions domain.Restrictions
}

func (s *AdminService) buildChannel(ctx context.Context, in ChannelInput) (domain.Channel, error) {
	if in.RoomTypeID == "" {
		return domain.Channel{}, domain.ErrInvalidID
	}
	rt, err := s.repo.GetRoomType(ctx, in.RoomTypeID)
	if err != nil {
		return domain.Channel{}, err
	}

	commission, err := parseDecimal(in.Commission)
	if err != nil {
		return domain.Channel{}, fmt.Errorf("commission %q: %w", in.Commission, domain.ErrInvalidCommission)
	}
	rate, err := parseDecimal(in.NightlyRate)
	if err != nil || rate.IsNegative() {
		return domain.Channel{}, fmt.Errorf("nightlyRate %q: %w", in.NightlyRate, domain.ErrInvalidRate)
	}

	ch := domain.Channel{
		RoomTypeID:   rt.ID,
		Name:         in.Name,
		Type:         in.Type,
		Allocation:   in.Allocation,
		Priority:     in.Priority,
		Commission:   commission,
		NightlyRate:  rate,
		Restrictions: in.Restrictions,
	}

	method := rt.Method
	if method == "" {
		defaults, err := s.settings.Get(ctx)
		if err != nil {
			return domain.Channel{}, err
		}
		method = defaults.DefaultAllocationMethod
	}
	if err := ch.Validate(method); err != nil {
		return domain.Channel{}, err
	}
	return ch, nil
}

func (s *AdminService) CreateChannel(ctx context.Context, in ChannelInput) (domain.Channel, error) {
	ch, err := s.buildChannel(ctx, in)
	if err != nil {
		return domain.Channel{}, err
	}
	ch.ID = newID()
	ch.CreatedAt = s.clock.Now()

	if err := s.repo.CreateChannel(ctx, ch); err != nil {
		return domain.Channel{}, err
	}
	return ch, nil
}

type UpdateChannelInput struct {
	ChannelID string
	ChannelInput
}

func (s *AdminService) UpdateChannel(ctx context.Context, in UpdateChannelInput) (domain.Channel, error) {
	if in.ChannelID == "" {
		return domain.Channel{}, domain.ErrInvalidID
	}
	ch, err := s.buildChannel(ctx, in.ChannelInput)
	if err != nil {
		return domain.Channel{}, err
	}
	ch.ID = in.ChannelID

	if err := s.repo.UpdateChannel(ctx, ch); err != nil {
		return domain.Channel{}, err
	}
	return ch, nil
}

func (s *AdminService) ListChannels(ctx context.Context, roomTypeID string) ([]domain.Channel, error) {
	if roomTypeID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListChannels(ctx, roomTypeID)
}

type DeleteChannelInput struct {
	RoomTypeID   string
	ChannelName  string
	Redistribute bool
}

// DeleteChannel removes a channel's configuration. When future dates still
// carry allocation for it, the delete is refused unless the caller asked for
// redistribution, which moves the unbooked units to the highest-priority
// surviving channel first.
func (s *AdminService) DeleteChannel(ctx context.Context, in DeleteChannelInput) error {
	if in.RoomTypeID == "" || in.ChannelName == "" {
		return domain.ErrInvalidID
	}

	allocated, err := s.repo.HasFutureAllocation(ctx, in.RoomTypeID, in.ChannelName, domain.DayOf(s.clock.Now()))
	if err != nil {
		return err
	}
	if allocated {
		if !in.Redistribute {
			return domain.ErrChannelAllocated
		}

		channels, err := s.repo.ListChannels(ctx, in.RoomTypeID)
		if err != nil {
			return err
		}
		survivor, ok := pickSurvivor(channels, in.ChannelName)
		if !ok {
			return domain.ErrChannelAllocated
		}
		if err := s.redist.RedistributeChannel(ctx, in.RoomTypeID, in.ChannelName, survivor); err != nil {
			return err
		}
	}

	return s.repo.DeleteChannel(ctx, in.RoomTypeID, in.ChannelName)
}

// pickSurvivor selects the highest-priority channel other than the one being
// deleted. Lower priority value fills first, ties break on list order.
func pickSurvivor(channels []domain.Channel, deleting string) (string, bool) {
	remaining := make([]domain.Channel, 0, len(channels))
	for _, c := range channels {
		if c.Name != deleting {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		return "", false
	}
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Priority < remaining[j].Priority
	})
	return remaining[0].Name, true
}
