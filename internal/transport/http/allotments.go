package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cimillas/channel-inventory/internal/allocation"
	"github.com/cimillas/channel-inventory/internal/app"
	"github.com/cimillas/channel-inventory/internal/domain"
)

// AllotmentReader is the minimal interface needed to serve allotment reads.
type AllotmentReader interface {
	GetAllotment(ctx context.Context, in app.GetAllotmentInput) (domain.RoomTypeAllotment, error)
}

// AllotmentMutator is the minimal interface needed by the mutation endpoints.
type AllotmentMutator interface {
	SetAllocation(ctx context.Context, in app.SetAllocationInput) (domain.DailyAllotment, error)
	Transfer(ctx context.Context, in app.TransferInput) (domain.DailyAllotment, error)
	BulkApply(ctx context.Context, in app.BulkApplyInput) (domain.DailyAllotment, error)
	CopyForward(ctx context.Context, in app.CopyForwardInput) (domain.DailyAllotment, error)
}

// AllotmentPreviewer is the minimal interface for the resolver preview
// endpoint.
type AllotmentPreviewer interface {
	ResolvePreview(ctx context.Context, in app.ResolvePreviewInput) (allocation.Plan, error)
}

// HandleGetAllotment serves GET /allotments?roomTypeId=&from=&to=.
func HandleGetAllotment(svc AllotmentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		roomTypeID := r.URL.Query().Get("roomTypeId")
		if roomTypeID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "roomTypeId is required")
			return
		}
		from, ok := parseDay(r.URL.Query().Get("from"))
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "invalid from date")
			return
		}
		to, ok := parseDay(r.URL.Query().Get("to"))
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "invalid to date")
			return
		}

		got, err := svc.GetAllotment(r.Context(), app.GetAllotmentInput{
			RoomTypeID: roomTypeID,
			From:       from,
			To:         to,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := roomTypeAllotmentResponse{
			RoomTypeID:       got.RoomTypeID,
			AllocationMethod: string(got.Method),
			DailyAllotments:  make(map[string]dailyAllotmentResponse, len(got.DailyAllotments)),
			LastUpdated:      got.LastUpdated,
		}
		for _, ch := range got.Channels {
			resp.Channels = append(resp.Channels, channelConfigResponse{
				ID:          ch.ID,
				Name:        ch.Name,
				Type:        string(ch.Type),
				Allocation:  ch.Allocation,
				Priority:    ch.Priority,
				Commission:  ch.Commission.String(),
				NightlyRate: ch.NightlyRate.String(),
			})
		}
		for key, d := range got.DailyAllotments {
			resp.DailyAllotments[key] = toDailyResponse(d, got.Channels)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleSetAllocation serves POST /allotments/set-allocation.
func HandleSetAllocation(svc AllotmentMutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setAllocationRequest
		if !decodeMutation(w, r, &req) {
			return
		}
		date, ok := parseDay(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "invalid date")
			return
		}

		d, err := svc.SetAllocation(r.Context(), app.SetAllocationInput{
			RoomTypeID:  req.RoomTypeID,
			Date:        date,
			ChannelName: req.ChannelName,
			Amount:      req.Amount,
			Version:     req.Version,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeDaily(w, d)
	}
}

// HandleTransfer serves POST /allotments/transfer.
func HandleTransfer(svc AllotmentMutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if !decodeMutation(w, r, &req) {
			return
		}
		date, ok := parseDay(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "invalid date")
			return
		}

		d, err := svc.Transfer(r.Context(), app.TransferInput{
			RoomTypeID:  req.RoomTypeID,
			Date:        date,
			FromChannel: req.FromChannel,
			ToChannel:   req.ToChannel,
			Amount:      req.Amount,
			Version:     req.Version,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeDaily(w, d)
	}
}

// HandleBulkApply serves POST /allotments/bulk-apply.
func HandleBulkApply(svc AllotmentMutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkApplyRequest
		if !decodeMutation(w, r, &req) {
			return
		}
		date, ok := parseDay(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "invalid date")
			return
		}

		d, err := svc.BulkApply(r.Context(), app.BulkApplyInput{
			RoomTypeID:  req.RoomTypeID,
			Date:        date,
			Allocations: req.Allocations,
			Version:     req.Version,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeDaily(w, d)
	}
}

// HandleCopyForward serves POST /allotments/copy-forward.
func HandleCopyForward(svc AllotmentMutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req copyForwardRequest
		if !decodeMutation(w, r, &req) {
			return
		}
		from, ok := parseDay(req.FromDate)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "invalid fromDate")
			return
		}
		to, ok := parseDay(req.ToDate)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "invalid toDate")
			return
		}

		d, err := svc.CopyForward(r.Context(), app.CopyForwardInput{
			RoomTypeID: req.RoomTypeID,
			FromDate:   from,
			ToDate:     to,
			Version:    req.Version,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeDaily(w, d)
	}
}

// HandleResolvePreview serves POST /allotments/resolve-preview.
func HandleResolvePreview(svc AllotmentPreviewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolvePreviewRequest
		if !decodeMutation(w, r, &req) {
			return
		}
		date, ok := parseDay(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "invalid date")
			return
		}

		plan, err := svc.ResolvePreview(r.Context(), app.ResolvePreviewInput{
			RoomTypeID: req.RoomTypeID,
			Date:       date,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resolvePreviewResponse{
			Targets:  plan.Targets,
			Warnings: plan.Warnings,
		})
	}
}

func decodeMutation(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func writeDaily(w http.ResponseWriter, d domain.DailyAllotment) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDailyResponse(d, nil))
}

type setAllocationRequest struct {
	RoomTypeID  string `json:"roomTypeId"`
	Date        string `json:"date"`
	ChannelName string `json:"channelName"`
	Amount      int    `json:"amount"`
	Version     int    `json:"version"`
}

type transferRequest struct {
	RoomTypeID  string `json:"roomTypeId"`
	Date        string `json:"date"`
	FromChannel string `json:"fromChannel"`
	ToChannel   string `json:"toChannel"`
	Amount      int    `json:"amount"`
	Version     int    `json:"version"`
}

type bulkApplyRequest struct {
	RoomTypeID  string         `json:"roomTypeId"`
	Date        string         `json:"date"`
	Allocations map[string]int `json:"allocations"`
	Version     int            `json:"version"`
}

type copyForwardRequest struct {
	RoomTypeID string `json:"roomTypeId"`
	FromDate   string `json:"fromDate"`
	ToDate     string `json:"toDate"`
	Version    int    `json:"version"`
}

type resolvePreviewRequest struct {
	RoomTypeID string `json:"roomTypeId"`
	Date       string `json:"date"`
}

type resolvePreviewResponse struct {
	Targets  map[string]int `json:"targets"`
	Warnings []string       `json:"warnings,omitempty"`
}

type channelAllocationResponse struct {
	ChannelName string `json:"channelName"`
	Allocated   int    `json:"allocated"`
	Booked      int    `json:"booked"`
	Remaining   int    `json:"remaining"`
	Held        int    `json:"held,omitempty"`
}

type dailyAllotmentResponse struct {
	Date           string                      `json:"date"`
	TotalInventory int                         `json:"totalInventory"`
	Channels       []channelAllocationResponse `json:"channels"`
	OccupancyRate  float64                     `json:"occupancyRate"`
	Revenue        string                      `json:"revenue,omitempty"`
	Warnings       []string                    `json:"warnings"`
	Version        int                         `json:"version"`
}

type channelConfigResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Allocation  int    `json:"allocation"`
	Priority    int    `json:"priority"`
	Commission  string `json:"commission"`
	NightlyRate string `json:"nightlyRate"`
}

type roomTypeAllotmentResponse struct {
	RoomTypeID       string                            `json:"roomTypeId"`
	Channels         []channelConfigResponse           `json:"channels"`
	AllocationMethod string                            `json:"allocationMethod"`
	DailyAllotments  map[string]dailyAllotmentResponse `json:"dailyAllotments"`
	LastUpdated      time.Time                         `json:"lastUpdated"`
}

func toDailyResponse(d domain.DailyAllotment, channels []domain.Channel) dailyAllotmentResponse {
	resp := dailyAllotmentResponse{
		Date:           domain.DayKey(d.Date),
		TotalInventory: d.TotalInventory,
		Channels:       make([]channelAllocationResponse, 0, len(d.Channels)),
		OccupancyRate:  d.OccupancyRate(),
		Warnings:       d.Warnings,
		Version:        d.Version,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	for _, c := range d.Channels {
		resp.Channels = append(resp.Channels, channelAllocationResponse{
			ChannelName: c.ChannelName,
			Allocated:   c.Allocated,
			Booked:      c.Booked,
			Remaining:   c.Remaining(),
			Held:        c.Held,
		})
	}
	if len(channels) > 0 {
		resp.Revenue = d.Revenue(channels).String()
	}
	return resp
}
