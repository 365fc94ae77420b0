package domain

import "errors"

var (
	ErrRoomTypeNotFound     = errors.New("room type not found")
	ErrRoomTypeNameRequired = errors.New("room type name required")
	ErrRoomTypeExists       = errors.New("room type already exists")
	ErrInvalidRoomCount     = errors.New("invalid room count")

	ErrChannelNotFound     = errors.New("channel not found")
	ErrChannelNameRequired = errors.New("channel name required")
	ErrChannelExists       = errors.New("channel already exists")
	ErrInvalidChannelType  = errors.New("invalid channel type")
	ErrInvalidAllocation   = errors.New("invalid allocation value")
	ErrInvalidPriority     = errors.New("invalid priority")
	ErrInvalidCommission   = errors.New("invalid commission")
	ErrInvalidRate         = errors.New("invalid nightly rate")
	ErrInvalidRestrictions = errors.New("invalid restrictions")
	ErrChannelAllocated    = errors.New("channel still has allocated inventory")

	ErrAllotmentNotFound      = errors.New("allotment not found")
	ErrCapacityExceeded       = errors.New("capacity exceeded")
	ErrInsufficientAllocation = errors.New("insufficient unbooked allocation")
	ErrStaleVersion           = errors.New("stale allotment version")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidDateRange       = errors.New("invalid date range")
	ErrSameChannel            = errors.New("source and destination channel are the same")
	ErrUnknownMethod          = errors.New("unknown allocation method")
	ErrInvalidSettings        = errors.New("invalid settings")
	ErrInvalidID              = errors.New("invalid id")
)
