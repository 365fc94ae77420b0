package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cimillas/channel-inventory/internal/app"
	"github.com/cimillas/channel-inventory/internal/domain"
)

// AdminRoomTypeService is the minimal interface for the room type endpoints.
type AdminRoomTypeService interface {
	CreateRoomType(ctx context.Context, in app.CreateRoomTypeInput) (domain.RoomType, error)
	ListRoomTypes(ctx context.Context) ([]domain.RoomType, error)
}

// AdminChannelService is the minimal interface for the channel endpoints.
type AdminChannelService interface {
	CreateChannel(ctx context.Context, in app.ChannelInput) (domain.Channel, error)
	UpdateChannel(ctx context.Context, in app.UpdateChannelInput) (domain.Channel, error)
	DeleteChannel(ctx context.Context, in app.DeleteChannelInput) error
	ListChannels(ctx context.Context, roomTypeID string) ([]domain.Channel, error)
}

// HandleAdminRoomTypes returns an HTTP handler for room type creation and
// listing.
func HandleAdminRoomTypes(svc AdminRoomTypeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			roomTypes, err := svc.ListRoomTypes(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]roomTypeResponse, 0, len(roomTypes))
			for _, rt := range roomTypes {
				resp = append(resp, toRoomTypeResponse(rt))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createRoomTypeRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			rt, err := svc.CreateRoomType(r.Context(), app.CreateRoomTypeInput{
				Name:          req.Name,
				PhysicalRooms: req.PhysicalRooms,
				Method:        domain.AllocationMethod(req.AllocationMethod),
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toRoomTypeResponse(rt))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminChannels returns an HTTP handler for the per-room-type channel
// collection: GET and POST on /admin/room-types/{id}/channels, PUT and DELETE
// on /admin/room-types/{id}/channels/{name}.
func HandleAdminChannels(svc AdminChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomTypeID, channelName, ok := parseAdminChannelsPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch {
		case r.Method == http.MethodGet && channelName == "":
			channels, err := svc.ListChannels(r.Context(), roomTypeID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]adminChannelResponse, 0, len(channels))
			for _, ch := range channels {
				resp = append(resp, toAdminChannelResponse(ch))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case r.Method == http.MethodPost && channelName == "":
			req, ok := decodeChannelRequest(w, r)
			if !ok {
				return
			}
			ch, err := svc.CreateChannel(r.Context(), req.toInput(roomTypeID))
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toAdminChannelResponse(ch))
		case r.Method == http.MethodPut && channelName != "":
			req, ok := decodeChannelRequest(w, r)
			if !ok {
				return
			}
			in := req.toInput(roomTypeID)
			in.Name = channelName
			ch, err := svc.UpdateChannel(r.Context(), app.UpdateChannelInput{
				ChannelID:    req.ID,
				ChannelInput: in,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toAdminChannelResponse(ch))
		case r.Method == http.MethodDelete && channelName != "":
			err := svc.DeleteChannel(r.Context(), app.DeleteChannelInput{
				RoomTypeID:   roomTypeID,
				ChannelName:  channelName,
				Redistribute: r.URL.Query().Get("redistribute") == "true",
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type createRoomTypeRequest struct {
	Name             string `json:"name"`
	PhysicalRooms    int    `json:"physicalRooms"`
	AllocationMethod string `json:"allocationMethod,omitempty"`
}

type roomTypeResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	PhysicalRooms    int       `json:"physicalRooms"`
	AllocationMethod string    `json:"allocationMethod,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toRoomTypeResponse(rt domain.RoomType) roomTypeResponse {
	return roomTypeResponse{
		ID:               rt.ID,
		Name:             rt.Name,
		PhysicalRooms:    rt.PhysicalRooms,
		AllocationMethod: string(rt.Method),
		CreatedAt:        rt.CreatedAt,
	}
}

type channelRequest struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	Type              string `json:"type"`
	Allocation        int    `json:"allocation"`
	Priority          int    `json:"priority"`
	Commission        string `json:"commission,omitempty"`
	NightlyRate       string `json:"nightlyRate,omitempty"`
	MinStay           int    `json:"minStay,omitempty"`
	MaxStay           int    `json:"maxStay,omitempty"`
	ClosedToArrival   bool   `json:"closedToArrival,omitempty"`
	ClosedToDeparture bool   `json:"closedToDeparture,omitempty"`
}

func (req channelRequest) toInput(roomTypeID string) app.ChannelInput {
	return app.ChannelInput{
		RoomTypeID:  roomTypeID,
		Name:        req.Name,
		Type:        domain.ChannelType(req.Type),
		Allocation:  req.Allocation,
		Priority:    req.Priority,
		Commission:  req.Commission,
		NightlyRate: req.NightlyRate,
		Restrictions: domain.Restrictions{
			MinStay:           req.MinStay,
			MaxStay:           req.MaxStay,
			ClosedToArrival:   req.ClosedToArrival,
			ClosedToDeparture: req.ClosedToDeparture,
		},
	}
}

func decodeChannelRequest(w http.ResponseWriter, r *http.Request) (channelRequest, bool) {
	var req channelRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return channelRequest{}, false
	}
	return req, true
}

type adminChannelResponse struct {
	ID                string    `json:"id"`
	RoomTypeID        string    `json:"roomTypeId"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	Allocation        int       `json:"allocation"`
	Priority          int       `json:"priority"`
	Commission        string    `json:"commission"`
	NightlyRate       string    `json:"nightlyRate"`
	MinStay           int       `json:"minStay"`
	MaxStay           int       `json:"maxStay"`
	ClosedToArrival   bool      `json:"closedToArrival"`
	ClosedToDeparture bool      `json:"closedToDeparture"`
	CreatedAt         time.Time `json:"createdAt"`
}

func toAdminChannelResponse(ch domain.Channel) adminChannelResponse {
	return adminChannelResponse{
		ID:                ch.ID,
		RoomTypeID:        ch.RoomTypeID,
		Name:              ch.Name,
		Type:              string(ch.Type),
		Allocation:        ch.Allocation,
		Priority:          ch.Priority,
		Commission:        ch.Commission.String(),
		NightlyRate:       ch.NightlyRate.String(),
		MinStay:           ch.Restrictions.MinStay,
		MaxStay:           ch.Restrictions.MaxStay,
		ClosedToArrival:   ch.Restrictions.ClosedToArrival,
		ClosedToDeparture: ch.Restrictions.ClosedToDeparture,
		CreatedAt:         ch.CreatedAt,
	}
}

func parseAdminChannelsPath(path string) (roomTypeID, channelName string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 && len(parts) != 5 {
		return "", "", false
	}
	if parts[0] != "admin" || parts[1] != "room-types" || parts[3] != "channels" {
		return "", "", false
	}
	if parts[2] == "" {
		return "", "", false
	}
	if len(parts) == 5 {
		if parts[4] == "" {
			return "", "", false
		}
		return parts[2], parts[4], true
	}
	return parts[2], "", true
}
