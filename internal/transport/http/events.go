package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cimillas/channel-inventory/internal/domain"
)

// EventLister reads recent allotment events for a room type.
type EventLister interface {
	ListByRoomType(ctx context.Context, roomTypeID string, limit int) ([]domain.AllotmentEvent, error)
}

const defaultEventLimit = 50

// HandleEvents serves GET /events?roomTypeId=...&limit=N.
func HandleEvents(svc EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		roomTypeID := r.URL.Query().Get("roomTypeId")
		if roomTypeID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "roomTypeId is required")
			return
		}
		limit := defaultEventLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 500 {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "limit must be between 1 and 500")
				return
			}
			limit = n
		}

		events, err := svc.ListByRoomType(r.Context(), roomTypeID, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]eventResponse, 0, len(events))
		for _, ev := range events {
			resp = append(resp, eventResponse{
				ID:          ev.ID,
				RoomTypeID:  ev.RoomTypeID,
				Date:        domain.DayKey(ev.Date),
				Type:        string(ev.Type),
				ChannelName: ev.ChannelName,
				Quantity:    ev.Quantity,
				CreatedAt:   ev.CreatedAt,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type eventResponse struct {
	ID          string    `json:"id"`
	RoomTypeID  string    `json:"roomTypeId"`
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	ChannelName string    `json:"channelName,omitempty"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"createdAt"`
}
