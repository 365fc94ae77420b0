package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/channel-inventory/internal/domain"
)

const (
	codeMethodNotAllowed       = "method_not_allowed"
	codeNotFound               = "not_found"
	codeInvalidRequestBody     = "invalid_request_body"
	codeInvalidDateRange       = "invalid_date_range"
	codeInvalidID              = "invalid_id"
	codeRoomTypeNameRequired   = "room_type_name_required"
	codeRoomTypeExists         = "room_type_already_exists"
	codeRoomTypeNotFound       = "room_type_not_found"
	codeInvalidRoomCount       = "invalid_room_count"
	codeChannelNotFound        = "channel_not_found"
	codeChannelExists          = "channel_already_exists"
	codeChannelAllocated       = "channel_still_allocated"
	codeInvalidChannelConfig   = "invalid_channel_config"
	codeCapacityExceeded       = "capacity_exceeded"
	codeInsufficientAllocation = "insufficient_allocation"
	codeStaleVersion           = "stale_version"
	codeAllotmentNotFound      = "allotment_not_found"
	codeInvalidQuantity        = "invalid_quantity"
	codeSameChannel            = "same_channel"
	codeUnknownMethod          = "unknown_allocation_method"
	codeInvalidSettings        = "invalid_settings"
	codeForbidden              = "forbidden"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the engine's sentinel errors onto the transport's
// status and code table. Anything unmapped is an internal error.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidDateRange):
		writeError(w, http.StatusBadRequest, codeInvalidDateRange, err.Error())
	case errors.Is(err, domain.ErrSameChannel):
		writeError(w, http.StatusBadRequest, codeSameChannel, err.Error())
	case errors.Is(err, domain.ErrUnknownMethod):
		writeError(w, http.StatusBadRequest, codeUnknownMethod, err.Error())
	case errors.Is(err, domain.ErrInvalidSettings):
		writeError(w, http.StatusBadRequest, codeInvalidSettings, err.Error())
	case errors.Is(err, domain.ErrRoomTypeNameRequired):
		writeError(w, http.StatusBadRequest, codeRoomTypeNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidRoomCount):
		writeError(w, http.StatusBadRequest, codeInvalidRoomCount, err.Error())
	case errors.Is(err, domain.ErrChannelNameRequired),
		errors.Is(err, domain.ErrInvalidChannelType),
		errors.Is(err, domain.ErrInvalidAllocation),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidCommission),
		errors.Is(err, domain.ErrInvalidRate),
		errors.Is(err, domain.ErrInvalidRestrictions):
		writeError(w, http.StatusBadRequest, codeInvalidChannelConfig, err.Error())
	case errors.Is(err, domain.ErrRoomTypeNotFound):
		writeError(w, http.StatusNotFound, codeRoomTypeNotFound, err.Error())
	case errors.Is(err, domain.ErrChannelNotFound):
		writeError(w, http.StatusNotFound, codeChannelNotFound, err.Error())
	case errors.Is(err, domain.ErrAllotmentNotFound):
		writeError(w, http.StatusNotFound, codeAllotmentNotFound, err.Error())
	case errors.Is(err, domain.ErrRoomTypeExists):
		writeError(w, http.StatusConflict, codeRoomTypeExists, err.Error())
	case errors.Is(err, domain.ErrChannelExists):
		writeError(w, http.StatusConflict, codeChannelExists, err.Error())
	case errors.Is(err, domain.ErrChannelAllocated):
		writeError(w, http.StatusConflict, codeChannelAllocated, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, codeCapacityExceeded, err.Error())
	case errors.Is(err, domain.ErrInsufficientAllocation):
		writeError(w, http.StatusConflict, codeInsufficientAllocation, err.Error())
	case errors.Is(err, domain.ErrStaleVersion):
		writeError(w, http.StatusConflict, codeStaleVersion, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
