package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cimillas/channel-inventory/internal/domain"
)

// SettingsService is the minimal interface for the settings endpoints.
type SettingsService interface {
	GetSettings(ctx context.Context) (domain.GlobalDefaults, error)
	SaveSettings(ctx context.Context, g domain.GlobalDefaults) (domain.GlobalDefaults, error)
}

// HandleSettings serves GET and PUT /settings.
func HandleSettings(svc SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			g, err := svc.GetSettings(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toSettingsResponse(g))
		case http.MethodPut:
			var req settingsRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			g, err := svc.SaveSettings(r.Context(), domain.GlobalDefaults{
				TotalInventory:          req.TotalInventory,
				DefaultAllocationMethod: domain.AllocationMethod(req.DefaultAllocationMethod),
				OverbookingAllowed:      req.OverbookingAllowed,
				OverbookingLimit:        req.OverbookingLimit,
				ReleaseWindow:           req.ReleaseWindow,
				AutoRelease:             req.AutoRelease,
				BlockPeriod:             req.BlockPeriod,
				Currency:                req.Currency,
				Timezone:                req.Timezone,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toSettingsResponse(g))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type settingsRequest struct {
	TotalInventory          int    `json:"totalInventory"`
	DefaultAllocationMethod string `json:"defaultAllocationMethod"`
	OverbookingAllowed      bool   `json:"overbookingAllowed"`
	OverbookingLimit        int    `json:"overbookingLimit"`
	ReleaseWindow           int    `json:"releaseWindow"`
	AutoRelease             bool   `json:"autoRelease"`
	BlockPeriod             int    `json:"blockPeriod"`
	Currency                string `json:"currency"`
	Timezone                string `json:"timezone"`
}

type settingsResponse struct {
	settingsRequest
	UpdatedAt time.Time `json:"updatedAt"`
}

func toSettingsResponse(g domain.GlobalDefaults) settingsResponse {
	return settingsResponse{
		settingsRequest: settingsRequest{
			TotalInventory:          g.TotalInventory,
			DefaultAllocationMethod: string(g.DefaultAllocationMethod),
			OverbookingAllowed:      g.OverbookingAllowed,
			OverbookingLimit:        g.OverbookingLimit,
			ReleaseWindow:           g.ReleaseWindow,
			AutoRelease:             g.AutoRelease,
			BlockPeriod:             g.BlockPeriod,
			Currency:                g.Currency,
			Timezone:                g.Timezone,
		},
		UpdatedAt: g.UpdatedAt,
	}
}
