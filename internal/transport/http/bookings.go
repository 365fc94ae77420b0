package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cimillas/channel-inventory/internal/app"
	"github.com/cimillas/channel-inventory/internal/domain"
)

// BookingApplier is the minimal interface needed by the booking ingestion
// endpoint.
type BookingApplier interface {
	ApplyBooking(ctx context.Context, in app.ApplyBookingInput) (domain.DailyAllotment, error)
}

// HandleApplyBooking serves POST /bookings. Cancellations arrive as negative
// quantities.
func HandleApplyBooking(svc BookingApplier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applyBookingRequest
		if !decodeMutation(w, r, &req) {
			return
		}
		date, ok := parseDay(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "invalid date")
			return
		}

		d, err := svc.ApplyBooking(r.Context(), app.ApplyBookingInput{
			RoomTypeID:  req.RoomTypeID,
			Date:        date,
			ChannelName: req.ChannelName,
			Quantity:    req.Quantity,
			Confirmed:   req.Confirmed,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toDailyResponse(d, nil))
	}
}

type applyBookingRequest struct {
	RoomTypeID  string `json:"roomTypeId"`
	Date        string `json:"date"`
	ChannelName string `json:"channelName"`
	Quantity    int    `json:"quantity"`
	Confirmed   bool   `json:"confirmed"`
}
