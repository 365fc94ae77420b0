package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/channel-inventory/internal/clock"
	"github.com/cimillas/channel-inventory/internal/domain"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testDefaults() domain.GlobalDefaults {
	return domain.GlobalDefaults{
		TotalInventory:          10,
		DefaultAllocationMethod: domain.MethodPercentage,
		OverbookingAllowed:      false,
		OverbookingLimit:        0,
		ReleaseWindow:           48,
		AutoRelease:             true,
		Currency:                "EUR",
		Timezone:                "Europe/Madrid",
	}
}

func percentageChannels() []domain.Channel {
	return []domain.Channel{
		{ID: "ch-1", RoomTypeID: "rt-1", Name: "DIRECT", Type: domain.ChannelDirect, Allocation: 60, Priority: 1},
		{ID: "ch-2", RoomTypeID: "rt-1", Name: "BOOKING_COM", Type: domain.ChannelBookingCom, Allocation: 40, Priority: 2, Commission: decimal.NewFromInt(15)},
	}
}

func newTestService(defaults domain.GlobalDefaults, channels []domain.Channel, opts ...AllotmentServiceOption) (*AllotmentService, *fakeAllotmentRepo, *fakeRecorder) {
	repo := newFakeAllotmentRepo(
		[]domain.RoomType{{ID: "rt-1", Name: "Double", PhysicalRooms: 10}},
		channels,
	)
	recorder := &fakeRecorder{}
	opts = append(opts, WithEventRecorder(recorder))
	svc := NewAllotmentService(repo, &fakeSettings{defaults: defaults}, clock.NewFixed(testNow), opts...)
	return svc, repo, recorder
}

func TestAllotmentService_GetAllotment(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	t.Run("materializes missing dates from the percentage baseline", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())

		got, err := svc.GetAllotment(context.Background(), GetAllotmentInput{RoomTypeID: "rt-1", From: date, To: date})
		if err != nil {
			t.Fatalf("get allotment: %v", err)
		}

		d, ok := got.DailyAllotments["2025-06-10"]
		if !ok {
			t.Fatalf("expected a record for 2025-06-10, got %v", got.DailyAllotments)
		}
		if d.Version != 1 {
			t.Fatalf("expected version 1, got %d", d.Version)
		}
		if d.Channel("DIRECT").Allocated != 6 || d.Channel("BOOKING_COM").Allocated != 4 {
			t.Fatalf("expected 6/4 split, got %d/%d", d.Channel("DIRECT").Allocated, d.Channel("BOOKING_COM").Allocated)
		}
		if repo.inserted != 1 {
			t.Fatalf("expected one persisted record, got %d", repo.inserted)
		}
	})

	t.Run("returns existing records untouched", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		repo.seedDay(domain.DailyAllotment{
			ID: "da-1", RoomTypeID: "rt-1", Date: date, TotalInventory: 10, Version: 3,
			Channels: []domain.ChannelAllocation{{ChannelName: "DIRECT", Allocated: 9}, {ChannelName: "BOOKING_COM", Allocated: 1}},
		})

		got, err := svc.GetAllotment(context.Background(), GetAllotmentInput{RoomTypeID: "rt-1", From: date, To: date})
		if err != nil {
			t.Fatalf("get allotment: %v", err)
		}
		if d := got.DailyAllotments["2025-06-10"]; d.Version != 3 || d.Channel("DIRECT").Allocated != 9 {
			t.Fatalf("expected stored record back, got %+v", d)
		}
		if repo.inserted != 0 {
			t.Fatalf("expected no materialization, got %d inserts", repo.inserted)
		}
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		svc, _, _ := newTestService(testDefaults(), percentageChannels())

		_, err := svc.GetAllotment(context.Background(), GetAllotmentInput{RoomTypeID: "rt-1", From: date, To: date.AddDate(0, 0, -1)})
		if !errors.Is(err, domain.ErrInvalidDateRange) {
			t.Fatalf("expected ErrInvalidDateRange, got %v", err)
		}
	})

	t.Run("unknown room type", func(t *testing.T) {
		svc, _, _ := newTestService(testDefaults(), percentageChannels())

		_, err := svc.GetAllotment(context.Background(), GetAllotmentInput{RoomTypeID: "nope", From: date, To: date})
		if !errors.Is(err, domain.ErrRoomTypeNotFound) {
			t.Fatalf("expected ErrRoomTypeNotFound, got %v", err)
		}
	})
}

func TestAllotmentService_SetAllocation(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	seed := func(repo *fakeAllotmentRepo) {
		repo.seedDay(domain.DailyAllotment{
			ID: "da-1", RoomTypeID: "rt-1", Date: date, TotalInventory: 10, Version: 1,
			Channels: []domain.ChannelAllocation{
				{ChannelName: "DIRECT", Allocated: 6, Booked: 2},
				{ChannelName: "BOOKING_COM", Allocated: 4, Booked: 1},
			},
		})
	}

	t.Run("overwrites one channel and bumps the version", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo)

		got, err := svc.SetAllocation(context.Background(), SetAllocationInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "BOOKING_COM", Amount: 3, Version: 1,
		})
		if err != nil {
			t.Fatalf("set allocation: %v", err)
		}
		if got.Channel("BOOKING_COM").Allocated != 3 {
			t.Fatalf("expected 3, got %d", got.Channel("BOOKING_COM").Allocated)
		}
		if got.Version != 2 {
			t.Fatalf("expected version 2, got %d", got.Version)
		}
	})

	t.Run("rejects when the day would exceed capacity", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo)

		_, err := svc.SetAllocation(context.Background(), SetAllocationInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "BOOKING_COM", Amount: 5, Version: 1,
		})
		if !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("expected ErrCapacityExceeded, got %v", err)
		}
		if d := repo.day("rt-1", date); d.Channel("BOOKING_COM").Allocated != 4 || d.Version != 1 {
			t.Fatalf("expected stored day unchanged, got %+v", d)
		}
	})

	t.Run("overbooking margin admits the same vector", func(t *testing.T) {
		defaults := testDefaults()
		defaults.OverbookingAllowed = true
		defaults.OverbookingLimit = 20
		svc, repo, _ := newTestService(defaults, percentageChannels())
		seed(repo)

		got, err := svc.SetAllocation(context.Background(), SetAllocationInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "BOOKING_COM", Amount: 5, Version: 1,
		})
		if err != nil {
			t.Fatalf("set allocation: %v", err)
		}
		if got.TotalAllocated() != 11 {
			t.Fatalf("expected total 11, got %d", got.TotalAllocated())
		}
	})

	t.Run("succeeds with warning when booked already exceeds the new amount", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo)

		got, err := svc.SetAllocation(context.Background(), SetAllocationInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "DIRECT", Amount: 1, Version: 1,
		})
		if err != nil {
			t.Fatalf("set allocation: %v", err)
		}
		if len(got.Warnings) == 0 {
			t.Fatalf("expected a booked-over-allocation warning, got none")
		}
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo)

		_, err := svc.SetAllocation(context.Background(), SetAllocationInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "BOOKING_COM", Amount: 3, Version: 7,
		})
		if !errors.Is(err, domain.ErrStaleVersion) {
			t.Fatalf("expected ErrStaleVersion, got %v", err)
		}
	})

	t.Run("negative amount", func(t *testing.T) {
		svc, _, _ := newTestService(testDefaults(), percentageChannels())

		_, err := svc.SetAllocation(context.Background(), SetAllocationInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "DIRECT", Amount: -1, Version: 1,
		})
		if !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("unknown channel", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo)

		_, err := svc.SetAllocation(context.Background(), SetAllocationInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "AGODA", Amount: 2, Version: 1,
		})
		if !errors.Is(err, domain.ErrChannelNotFound) {
			t.Fatalf("expected ErrChannelNotFound, got %v", err)
		}
	})
}

func TestAllotmentService_Transfer(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	seed := func(repo *fakeAllotmentRepo, version int) {
		repo.seedDay(domain.DailyAllotment{
			ID: "da-1", RoomTypeID: "rt-1", Date: date, TotalInventory: 10, Version: version,
			Channels: []domain.ChannelAllocation{
				{ChannelName: "DIRECT", Allocated: 6, Booked: 2},
				{ChannelName: "BOOKING_COM", Allocated: 4, Booked: 4},
			},
		})
	}

	t.Run("moves unbooked units and conserves the total", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo, 1)

		got, err := svc.Transfer(context.Background(), TransferInput{
			RoomTypeID: "rt-1", Date: date, FromChannel: "DIRECT", ToChannel: "BOOKING_COM", Amount: 3, Version: 1,
		})
		if err != nil {
			t.Fatalf("transfer: %v", err)
		}
		if got.Channel("DIRECT").Allocated != 3 || got.Channel("BOOKING_COM").Allocated != 7 {
			t.Fatalf("expected 3/7, got %d/%d", got.Channel("DIRECT").Allocated, got.Channel("BOOKING_COM").Allocated)
		}
		if got.TotalAllocated() != 10 {
			t.Fatalf("expected total conserved at 10, got %d", got.TotalAllocated())
		}
	})

	t.Run("rejects moving booked units", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo, 1)

		_, err := svc.Transfer(context.Background(), TransferInput{
			RoomTypeID: "rt-1", Date: date, FromChannel: "DIRECT", ToChannel: "BOOKING_COM", Amount: 5, Version: 1,
		})
		if !errors.Is(err, domain.ErrInsufficientAllocation) {
			t.Fatalf("expected ErrInsufficientAllocation, got %v", err)
		}
	})

	t.Run("retries once against fresh state on stale version", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo, 4) // caller read version 1, someone else already committed 4

		got, err := svc.Transfer(context.Background(), TransferInput{
			RoomTypeID: "rt-1", Date: date, FromChannel: "DIRECT", ToChannel: "BOOKING_COM", Amount: 2, Version: 1,
		})
		if err != nil {
			t.Fatalf("transfer retry: %v", err)
		}
		if got.Version != 5 {
			t.Fatalf("expected version 5 after retry, got %d", got.Version)
		}
		if got.Channel("BOOKING_COM").Allocated != 6 {
			t.Fatalf("expected 6 after retry, got %d", got.Channel("BOOKING_COM").Allocated)
		}
	})

	t.Run("same channel", func(t *testing.T) {
		svc, _, _ := newTestService(testDefaults(), percentageChannels())

		_, err := svc.Transfer(context.Background(), TransferInput{
			RoomTypeID: "rt-1", Date: date, FromChannel: "DIRECT", ToChannel: "DIRECT", Amount: 1, Version: 1,
		})
		if !errors.Is(err, domain.ErrSameChannel) {
			t.Fatalf("expected ErrSameChannel, got %v", err)
		}
	})

	t.Run("zero amount", func(t *testing.T) {
		svc, _, _ := newTestService(testDefaults(), percentageChannels())

		_, err := svc.Transfer(context.Background(), TransferInput{
			RoomTypeID: "rt-1", Date: date, FromChannel: "DIRECT", ToChannel: "BOOKING_COM", Amount: 0, Version: 1,
		})
		if !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

func TestAllotmentService_BulkApply(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	t.Run("replaces the whole vector and zeroes omitted channels", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		repo.seedDay(domain.DailyAllotment{
			ID: "da-1", RoomTypeID: "rt-1", Date: date, TotalInventory: 10, Version: 2,
			Channels: []domain.ChannelAllocation{
				{ChannelName: "DIRECT", Allocated: 6},
				{ChannelName: "BOOKING_COM", Allocated: 4},
			},
		})

		got, err := svc.BulkApply(context.Background(), BulkApplyInput{
			RoomTypeID: "rt-1", Date: date, Allocations: map[string]int{"DIRECT": 8}, Version: 2,
		})
		if err != nil {
			t.Fatalf("bulk apply: %v", err)
		}
		if got.Channel("DIRECT").Allocated != 8 || got.Channel("BOOKING_COM").Allocated != 0 {
			t.Fatalf("expected 8/0, got %d/%d", got.Channel("DIRECT").Allocated, got.Channel("BOOKING_COM").Allocated)
		}
	})

	t.Run("rejects the whole vector when over capacity", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		repo.seedDay(domain.DailyAllotment{
			ID: "da-1", RoomTypeID: "rt-1", Date: date, TotalInventory: 10, Version: 1,
			Channels: []domain.ChannelAllocation{
				{ChannelName: "DIRECT", Allocated: 6},
				{ChannelName: "BOOKING_COM", Allocated: 4},
			},
		})

		_, err := svc.BulkApply(context.Background(), BulkApplyInput{
			RoomTypeID: "rt-1", Date: date, Allocations: map[string]int{"DIRECT": 8, "BOOKING_COM": 4}, Version: 1,
		})
		if !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("expected ErrCapacityExceeded, got %v", err)
		}
		if d := repo.day("rt-1", date); d.Channel("DIRECT").Allocated != 6 {
			t.Fatalf("expected stored day unchanged, got %+v", d)
		}
	})

	t.Run("rejects unknown channel names", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		repo.seedDay(domain.DailyAllotment{
			ID: "da-1", RoomTypeID: "rt-1", Date: date, TotalInventory: 10, Version: 1,
			Channels: []domain.ChannelAllocation{{ChannelName: "DIRECT", Allocated: 10}},
		})

		_, err := svc.BulkApply(context.Background(), BulkApplyInput{
			RoomTypeID: "rt-1", Date: date, Allocations: map[string]int{"AGODA": 2}, Version: 1,
		})
		if !errors.Is(err, domain.ErrChannelNotFound) {
			t.Fatalf("expected ErrChannelNotFound, got %v", err)
		}
	})
}

func TestAllotmentService_CopyForward(t *testing.T) {
	t.Parallel()

	src := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	dst := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	t.Run("copies the vector, not the bookings", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		repo.seedDay(domain.DailyAllotment{
			ID: "da-1", RoomTypeID: "rt-1", Date: src, TotalInventory: 10, Version: 1,
			Channels: []domain.ChannelAllocation{
				{ChannelName: "DIRECT", Allocated: 7, Booked: 5},
				{ChannelName: "BOOKING_COM", Allocated: 3, Booked: 1},
			},
		})
		repo.seedDay(domain.DailyAllotment{
			ID: "da-2", RoomTypeID: "rt-1", Date: dst, TotalInventory: 10, Version: 1,
			Channels: []domain.ChannelAllocation{
				{ChannelName: "DIRECT", Allocated: 6, Booked: 2},
				{ChannelName: "BOOKING_COM", Allocated: 4},
			},
		})

		got, err := svc.CopyForward(context.Background(), CopyForwardInput{
			RoomTypeID: "rt-1", FromDate: src, ToDate: dst, Version: 1,
		})
		if err != nil {
			t.Fatalf("copy forward: %v", err)
		}
		if got.Channel("DIRECT").Allocated != 7 || got.Channel("BOOKING_COM").Allocated != 3 {
			t.Fatalf("expected 7/3, got %d/%d", got.Channel("DIRECT").Allocated, got.Channel("BOOKING_COM").Allocated)
		}
		if got.Channel("DIRECT").Booked != 2 {
			t.Fatalf("expected destination bookings untouched, got %d", got.Channel("DIRECT").Booked)
		}
	})

	t.Run("missing source date", func(t *testing.T) {
		svc, _, _ := newTestService(testDefaults(), percentageChannels())

		_, err := svc.CopyForward(context.Background(), CopyForwardInput{
			RoomTypeID: "rt-1", FromDate: src, ToDate: dst, Version: 1,
		})
		if !errors.Is(err, domain.ErrAllotmentNotFound) {
			t.Fatalf("expected ErrAllotmentNotFound, got %v", err)
		}
	})

	t.Run("same date", func(t *testing.T) {
		svc, _, _ := newTestService(testDefaults(), percentageChannels())

		_, err := svc.CopyForward(context.Background(), CopyForwardInput{
			RoomTypeID: "rt-1", FromDate: src, ToDate: src, Version: 1,
		})
		if !errors.Is(err, domain.ErrInvalidDateRange) {
			t.Fatalf("expected ErrInvalidDateRange, got %v", err)
		}
	})
}

func TestAllotmentService_ApplyBooking(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	seed := func(repo *fakeAllotmentRepo) {
		repo.seedDay(domain.DailyAllotment{
			ID: "da-1", RoomTypeID: "rt-1", Date: date, TotalInventory: 10, Version: 1,
			Channels: []domain.ChannelAllocation{
				{ChannelName: "DIRECT", Allocated: 6},
				{ChannelName: "BOOKING_COM", Allocated: 4, Held: 2},
			},
		})
	}

	t.Run("unconfirmed booking raises held", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo)

		got, err := svc.ApplyBooking(context.Background(), ApplyBookingInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "DIRECT", Quantity: 2,
		})
		if err != nil {
			t.Fatalf("apply booking: %v", err)
		}
		if got.Channel("DIRECT").Held != 2 || got.Channel("DIRECT").Booked != 0 {
			t.Fatalf("expected held 2, booked 0, got %+v", got.Channel("DIRECT"))
		}
	})

	t.Run("confirmed booking consumes held first", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo)

		got, err := svc.ApplyBooking(context.Background(), ApplyBookingInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "BOOKING_COM", Quantity: 3, Confirmed: true,
		})
		if err != nil {
			t.Fatalf("apply booking: %v", err)
		}
		if got.Channel("BOOKING_COM").Booked != 3 || got.Channel("BOOKING_COM").Held != 0 {
			t.Fatalf("expected booked 3, held 0, got %+v", got.Channel("BOOKING_COM"))
		}
	})

	t.Run("booking past allocation warns instead of rejecting", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo)

		got, err := svc.ApplyBooking(context.Background(), ApplyBookingInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "BOOKING_COM", Quantity: 6, Confirmed: true,
		})
		if err != nil {
			t.Fatalf("apply booking: %v", err)
		}
		if len(got.Warnings) == 0 {
			t.Fatalf("expected overbooked warning, got none")
		}
	})

	t.Run("cancellation below zero is rejected", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		seed(repo)

		_, err := svc.ApplyBooking(context.Background(), ApplyBookingInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "DIRECT", Quantity: -1, Confirmed: true,
		})
		if !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("new hold rearms a released channel", func(t *testing.T) {
		svc, repo, _ := newTestService(testDefaults(), percentageChannels())
		released := testNow.Add(-time.Hour)
		repo.seedDay(domain.DailyAllotment{
			ID: "da-1", RoomTypeID: "rt-1", Date: date, TotalInventory: 10, Version: 1,
			Channels: []domain.ChannelAllocation{{ChannelName: "DIRECT", Allocated: 10, ReleasedAt: &released}},
		})

		got, err := svc.ApplyBooking(context.Background(), ApplyBookingInput{
			RoomTypeID: "rt-1", Date: date, ChannelName: "DIRECT", Quantity: 1,
		})
		if err != nil {
			t.Fatalf("apply booking: %v", err)
		}
		if got.Channel("DIRECT").ReleasedAt != nil {
			t.Fatalf("expected released stamp cleared")
		}
	})
}

func TestAllotmentService_ResolvePreview(t *testing.T) {
	t.Parallel()

	t.Run("percentage targets", func(t *testing.T) {
		svc, _, _ := newTestService(testDefaults(), percentageChannels())

		plan, err := svc.ResolvePreview(context.Background(), ResolvePreviewInput{RoomTypeID: "rt-1", Date: testNow})
		if err != nil {
			t.Fatalf("resolve preview: %v", err)
		}
		if plan.Targets["DIRECT"] != 6 || plan.Targets["BOOKING_COM"] != 4 {
			t.Fatalf("expected 6/4, got %v", plan.Targets)
		}
	})

	t.Run("dynamic consults the demand signal", func(t *testing.T) {
		defaults := testDefaults()
		defaults.DefaultAllocationMethod = domain.MethodDynamic
		svc, _, _ := newTestService(defaults, percentageChannels(),
			WithDemandSignal(StaticDemand{"DIRECT": 1.5, "BOOKING_COM": 0.5}))

		plan, err := svc.ResolvePreview(context.Background(), ResolvePreviewInput{RoomTypeID: "rt-1", Date: testNow})
		if err != nil {
			t.Fatalf("resolve preview: %v", err)
		}
		if plan.Sum() > 10 {
			t.Fatalf("expected renormalized sum within 10, got %d", plan.Sum())
		}
		if plan.Targets["DIRECT"] <= plan.Targets["BOOKING_COM"] {
			t.Fatalf("expected demand to favor DIRECT, got %v", plan.Targets)
		}
	})
}

func TestAllotmentService_RedistributeChannel(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	svc, repo, _ := newTestService(testDefaults(), percentageChannels())
	repo.seedDay(domain.DailyAllotment{
		ID: "da-1", RoomTypeID: "rt-1", Date: date, TotalInventory: 10, Version: 1,
		Channels: []domain.ChannelAllocation{
			{ChannelName: "DIRECT", Allocated: 6},
			{ChannelName: "BOOKING_COM", Allocated: 4, Booked: 1},
		},
	})

	if err := svc.RedistributeChannel(context.Background(), "rt-1", "BOOKING_COM", "DIRECT"); err != nil {
		t.Fatalf("redistribute: %v", err)
	}

	d := repo.day("rt-1", date)
	if d.Channel("DIRECT").Allocated != 9 {
		t.Fatalf("expected DIRECT to absorb 3 unbooked units, got %d", d.Channel("DIRECT").Allocated)
	}
	if d.Channel("BOOKING_COM").Allocated != 1 {
		t.Fatalf("expected booked unit left behind, got %d", d.Channel("BOOKING_COM").Allocated)
	}
}

// fakes

type fakeAllotmentRepo struct {
	roomTypes map[string]domain.RoomType
	channels  map[string][]domain.Channel
	days      map[string]domain.DailyAllotment
	inserted  int
}

func newFakeAllotmentRepo(roomTypes []domain.RoomType, channels []domain.Channel) *fakeAllotmentRepo {
	f := &fakeAllotmentRepo{
		roomTypes: make(map[string]domain.RoomType),
		channels:  make(map[string][]domain.Channel),
		days:      make(map[string]domain.DailyAllotment),
	}
	for _, rt := range roomTypes {
		f.roomTypes[rt.ID] = rt
	}
	for _, ch := range channels {
		f.channels[ch.RoomTypeID] = append(f.channels[ch.RoomTypeID], ch)
	}
	return f
}

func (f *fakeAllotmentRepo) seedDay(d domain.DailyAllotment) {
	f.days[fakeDayKey(d.RoomTypeID, d.Date)] = d
}

func (f *fakeAllotmentRepo) day(roomTypeID string, date time.Time) domain.DailyAllotment {
	return f.days[fakeDayKey(roomTypeID, date)]
}

func (f *fakeAllotmentRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeAllotmentRepo) GetRoomType(_ context.Context, roomTypeID string) (domain.RoomType, error) {
	rt, ok := f.roomTypes[roomTypeID]
	if !ok {
		return domain.RoomType{}, domain.ErrRoomTypeNotFound
	}
	return rt, nil
}

func (f *fakeAllotmentRepo) ListChannels(_ context.Context, roomTypeID string) ([]domain.Channel, error) {
	return f.channels[roomTypeID], nil
}

func (f *fakeAllotmentRepo) GetDailyForUpdate(_ context.Context, roomTypeID string, date time.Time) (domain.DailyAllotment, error) {
	d, ok := f.days[fakeDayKey(roomTypeID, date)]
	if !ok {
		return domain.DailyAllotment{}, domain.ErrAllotmentNotFound
	}
	return cloneDaily(d), nil
}

func (f *fakeAllotmentRepo) ListDailyRange(_ context.Context, roomTypeID string, from, to time.Time) ([]domain.DailyAllotment, error) {
	var out []domain.DailyAllotment
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if d, ok := f.days[fakeDayKey(roomTypeID, day)]; ok {
			out = append(out, cloneDaily(d))
		}
	}
	return out, nil
}

func (f *fakeAllotmentRepo) InsertDaily(_ context.Context, d domain.DailyAllotment) error {
	f.days[fakeDayKey(d.RoomTypeID, d.Date)] = cloneDaily(d)
	f.inserted++
	return nil
}

func (f *fakeAllotmentRepo) UpdateDaily(_ context.Context, d domain.DailyAllotment, expectedVersion int) error {
	key := fakeDayKey(d.RoomTypeID, d.Date)
	stored, ok := f.days[key]
	if !ok {
		return domain.ErrAllotmentNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrStaleVersion
	}
	f.days[key] = cloneDaily(d)
	return nil
}

func (f *fakeAllotmentRepo) ListDatesWithAllocation(_ context.Context, roomTypeID, channelName string, from time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range f.days {
		if d.RoomTypeID != roomTypeID || d.Date.Before(from) {
			continue
		}
		if c := d.Channel(channelName); c != nil && c.Allocated > 0 {
			out = append(out, d.Date)
		}
	}
	return out, nil
}

func cloneDaily(d domain.DailyAllotment) domain.DailyAllotment {
	out := d
	out.Channels = append([]domain.ChannelAllocation{}, d.Channels...)
	out.Warnings = append([]string{}, d.Warnings...)
	return out
}

func fakeDayKey(roomTypeID string, date time.Time) string {
	return roomTypeID + "|" + domain.DayKey(date)
}

type fakeSettings struct {
	defaults domain.GlobalDefaults
	err      error
}

func (f *fakeSettings) Get(context.Context) (domain.GlobalDefaults, error) {
	return f.defaults, f.err
}

type fakeRecorder struct {
	events []domain.AllotmentEvent
	err    error
}

func (f *fakeRecorder) Record(_ context.Context, ev domain.AllotmentEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}
