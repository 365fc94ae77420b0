package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/channel-inventory/internal/app"
	"github.com/cimillas/channel-inventory/internal/domain"
)

type fakeAdmin struct {
	roomTypes []domain.RoomType
	channel   domain.Channel
	err       error

	lastCreate app.ChannelInput
	lastDelete app.DeleteChannelInput
}

func (f *fakeAdmin) CreateRoomType(_ context.Context, in app.CreateRoomTypeInput) (domain.RoomType, error) {
	if f.err != nil {
		return domain.RoomType{}, f.err
	}
	return domain.RoomType{ID: "rt-1", Name: in.Name, PhysicalRooms: in.PhysicalRooms, Method: in.Method}, nil
}

func (f *fakeAdmin) ListRoomTypes(context.Context) ([]domain.RoomType, error) {
	return f.roomTypes, f.err
}

func (f *fakeAdmin) CreateChannel(_ context.Context, in app.ChannelInput) (domain.Channel, error) {
	f.lastCreate = in
	return f.channel, f.err
}

func (f *fakeAdmin) UpdateChannel(_ context.Context, in app.UpdateChannelInput) (domain.Channel, error) {
	return f.channel, f.err
}

func (f *fakeAdmin) DeleteChannel(_ context.Context, in app.DeleteChannelInput) error {
	f.lastDelete = in
	return f.err
}

func (f *fakeAdmin) ListChannels(context.Context, string) ([]domain.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Channel{f.channel}, nil
}

func TestHandleAdminRoomTypes(t *testing.T) {
	t.Parallel()

	t.Run("creates a room type", func(t *testing.T) {
		svc := &fakeAdmin{}
		body := `{"name":"Double","physicalRooms":10,"allocationMethod":"PERCENTAGE"}`
		req := httptest.NewRequest(http.MethodPost, "/admin/room-types", strings.NewReader(body))
		rec := httptest.NewRecorder()

		HandleAdminRoomTypes(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp roomTypeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Name != "Double" || resp.PhysicalRooms != 10 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("duplicate name maps to 409", func(t *testing.T) {
		svc := &fakeAdmin{err: domain.ErrRoomTypeExists}
		body := `{"name":"Double","physicalRooms":10}`
		req := httptest.NewRequest(http.MethodPost, "/admin/room-types", strings.NewReader(body))
		rec := httptest.NewRecorder()

		HandleAdminRoomTypes(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("lists room types", func(t *testing.T) {
		svc := &fakeAdmin{roomTypes: []domain.RoomType{
			{ID: "rt-1", Name: "Double", PhysicalRooms: 10, CreatedAt: time.Now()},
		}}
		req := httptest.NewRequest(http.MethodGet, "/admin/room-types", nil)
		rec := httptest.NewRecorder()

		HandleAdminRoomTypes(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp []roomTypeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp) != 1 || resp[0].ID != "rt-1" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})
}

func TestHandleAdminChannels(t *testing.T) {
	t.Parallel()

	sample := domain.Channel{
		ID:          "ch-1",
		RoomTypeID:  "rt-1",
		Name:        "BOOKING_COM",
		Type:        domain.ChannelBookingCom,
		Allocation:  40,
		Priority:    2,
		Commission:  decimal.RequireFromString("15"),
		NightlyRate: decimal.RequireFromString("120.50"),
	}

	t.Run("creates a channel", func(t *testing.T) {
		svc := &fakeAdmin{channel: sample}
		body := `{"name":"BOOKING_COM","type":"BOOKING_COM","allocation":40,"priority":2,"commission":"15","nightlyRate":"120.50"}`
		req := httptest.NewRequest(http.MethodPost, "/admin/room-types/rt-1/channels", strings.NewReader(body))
		rec := httptest.NewRecorder()

		HandleAdminChannels(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if svc.lastCreate.RoomTypeID != "rt-1" || svc.lastCreate.Commission != "15" {
			t.Fatalf("unexpected input: %+v", svc.lastCreate)
		}
		var resp adminChannelResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.NightlyRate != "120.5" {
			t.Fatalf("expected nightlyRate 120.5, got %q", resp.NightlyRate)
		}
	})

	t.Run("delete passes redistribute flag", func(t *testing.T) {
		svc := &fakeAdmin{}
		req := httptest.NewRequest(http.MethodDelete, "/admin/room-types/rt-1/channels/BOOKING_COM?redistribute=true", nil)
		rec := httptest.NewRecorder()

		HandleAdminChannels(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if !svc.lastDelete.Redistribute || svc.lastDelete.ChannelName != "BOOKING_COM" {
			t.Fatalf("unexpected input: %+v", svc.lastDelete)
		}
	})

	t.Run("delete with future allocation maps to 409", func(t *testing.T) {
		svc := &fakeAdmin{err: domain.ErrChannelAllocated}
		req := httptest.NewRequest(http.MethodDelete, "/admin/room-types/rt-1/channels/BOOKING_COM", nil)
		rec := httptest.NewRecorder()

		HandleAdminChannels(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("malformed path is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/room-types/rt-1/other", nil)
		rec := httptest.NewRecorder()

		HandleAdminChannels(&fakeAdmin{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestParseAdminChannelsPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path     string
		roomType string
		channel  string
		ok       bool
	}{
		{"/admin/room-types/rt-1/channels", "rt-1", "", true},
		{"/admin/room-types/rt-1/channels/DIRECT", "rt-1", "DIRECT", true},
		{"/admin/room-types//channels", "", "", false},
		{"/admin/room-types/rt-1/channels/", "", "", false},
		{"/admin/room-types/rt-1", "", "", false},
		{"/admin/other/rt-1/channels", "", "", false},
	}
	for _, tc := range cases {
		roomType, channel, ok := parseAdminChannelsPath(tc.path)
		if roomType != tc.roomType || channel != tc.channel || ok != tc.ok {
			t.Errorf("parseAdminChannelsPath(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.path, roomType, channel, ok, tc.roomType, tc.channel, tc.ok)
		}
	}
}
