package domain

import "time"

// RoomType is a bookable room category with a physical room count.
// An empty Method means the tenant's default allocation method applies.
type RoomType struct {
	ID            string
	Name          string
	PhysicalRooms int
	Method        AllocationMethod
	CreatedAt     time.Time
}
