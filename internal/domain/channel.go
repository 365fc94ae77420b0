package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChannelType identifies the sales outlet behind a channel.
type ChannelType string

const (
	ChannelDirect     ChannelType = "DIRECT"
	ChannelBookingCom ChannelType = "BOOKING_COM"
	ChannelExpedia    ChannelType = "EXPEDIA"
	ChannelAirbnb     ChannelType = "AIRBNB"
	ChannelAgoda      ChannelType = "AGODA"
	ChannelHotelsCom  ChannelType = "HOTELS_COM"
)

// Valid reports whether t is one of the known channel types.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelDirect, ChannelBookingCom, ChannelExpedia, ChannelAirbnb, ChannelAgoda, ChannelHotelsCom:
		return true
	}
	return false
}

// Restrictions are the booking rules a channel advertises for its inventory.
type Restrictions struct {
	MinStay           int
	MaxStay           int
	ClosedToArrival   bool
	ClosedToDeparture bool
}

// Channel is the per-room-type configuration of one sales outlet.
// Allocation is a unit count or a percentage depending on the room type's
// allocation method; Priority orders filling, lower fills first.
type Channel struct {
	ID           string
	RoomTypeID   string
	Name         string
	Type         ChannelType
	Allocation   int
	Priority     int
	Commission   decimal.Decimal
	NightlyRate  decimal.Decimal
	Restrictions Restrictions
	CreatedAt    time.Time
}

// Validate checks a channel configuration against the room type's method.
func (c Channel) Validate(method AllocationMethod) error {
	if c.Name == "" {
		return ErrChannelNameRequired
	}
	if !c.Type.Valid() {
		return ErrInvalidChannelType
	}
	if c.Allocation < 0 {
		return ErrInvalidAllocation
	}
	if method == MethodPercentage && c.Allocation > 100 {
		return ErrInvalidAllocation
	}
	if c.Priority < 0 {
		return ErrInvalidPriority
	}
	if c.Commission.IsNegative() || c.Commission.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidCommission
	}
	if c.Restrictions.MinStay < 0 || c.Restrictions.MaxStay < 0 {
		return ErrInvalidRestrictions
	}
	if c.Restrictions.MaxStay > 0 && c.Restrictions.MinStay > c.Restrictions.MaxStay {
		return ErrInvalidRestrictions
	}
	return nil
}
