package domain

import "time"

// EventType classifies allotment event records consumed by the notification
// subsystem.
type EventType string

const (
	EventReleased        EventType = "released"
	EventCapacityWarning EventType = "capacity_warning"
	EventChannelStarved  EventType = "channel_starved"
)

// AllotmentEvent is an outbound record describing something the allocation
// engine did or observed for a room type and date.
type AllotmentEvent struct {
	ID          string
	RoomTypeID  string
	Date        time.Time
	Type        EventType
	ChannelName string
	Quantity    int
	CreatedAt   time.Time
}
