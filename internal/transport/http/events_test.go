package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cimillas/channel-inventory/internal/domain"
)

type fakeEventLister struct {
	events    []domain.AllotmentEvent
	err       error
	lastLimit int
}

func (f *fakeEventLister) ListByRoomType(_ context.Context, _ string, limit int) ([]domain.AllotmentEvent, error) {
	f.lastLimit = limit
	return f.events, f.err
}

func TestHandleEvents(t *testing.T) {
	t.Parallel()

	t.Run("lists events with default limit", func(t *testing.T) {
		svc := &fakeEventLister{events: []domain.AllotmentEvent{
			{
				ID:          "ev-1",
				RoomTypeID:  "rt-1",
				Date:        time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
				Type:        domain.EventReleased,
				ChannelName: "BOOKING_COM",
				Quantity:    2,
			},
		}}
		req := httptest.NewRequest(http.MethodGet, "/events?roomTypeId=rt-1", nil)
		rec := httptest.NewRecorder()

		HandleEvents(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if svc.lastLimit != defaultEventLimit {
			t.Fatalf("expected default limit %d, got %d", defaultEventLimit, svc.lastLimit)
		}
		var resp []eventResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp) != 1 || resp[0].Date != "2025-06-10" || resp[0].Type != "released" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events?roomTypeId=rt-1&limit=0", nil)
		rec := httptest.NewRecorder()

		HandleEvents(&fakeEventLister{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing room type id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		rec := httptest.NewRecorder()

		HandleEvents(&fakeEventLister{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
