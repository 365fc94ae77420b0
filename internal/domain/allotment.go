package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayOf truncates t to its calendar day at UTC midnight. All allotment dates
// are stored and compared in this form.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey formats a date the way daily allotments are keyed.
func DayKey(t time.Time) string {
	return DayOf(t).Format("2006-01-02")
}

// ChannelAllocation is one channel's slice of a day's inventory.
// Held counts booked-but-unconfirmed units; ReleasedAt marks that held units
// were already swept back, preventing a double release.
type ChannelAllocation struct {
	ChannelName string
	Allocated   int
	Booked      int
	Held        int
	ReleasedAt  *time.Time
}

// Remaining is the sellable balance for this channel and date.
func (c ChannelAllocation) Remaining() int {
	return c.Allocated - c.Booked
}

// DailyAllotment is the allocation state for one room type on one date.
// Version backs the optimistic-concurrency contract: every committed mutation
// bumps it, and mutations carry the version the caller read.
type DailyAllotment struct {
	ID             string
	RoomTypeID     string
	Date           time.Time
	TotalInventory int
	Channels       []ChannelAllocation
	Warnings       []string
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Channel returns the entry for name, or nil when the day has no such channel.
func (d *DailyAllotment) Channel(name string) *ChannelAllocation {
	for i := range d.Channels {
		if d.Channels[i].ChannelName == name {
			return &d.Channels[i]
		}
	}
	return nil
}

// AllocationVector snapshots the per-channel allocated counts.
func (d *DailyAllotment) AllocationVector() map[string]int {
	vector := make(map[string]int, len(d.Channels))
	for _, c := range d.Channels {
		vector[c.ChannelName] = c.Allocated
	}
	return vector
}

func (d *DailyAllotment) TotalAllocated() int {
	total := 0
	for _, c := range d.Channels {
		total += c.Allocated
	}
	return total
}

func (d *DailyAllotment) TotalBooked() int {
	total := 0
	for _, c := range d.Channels {
		total += c.Booked
	}
	return total
}

// OccupancyRate is booked inventory over physical inventory, in [0,1] unless
// overbooked.
func (d *DailyAllotment) OccupancyRate() float64 {
	if d.TotalInventory == 0 {
		return 0
	}
	return float64(d.TotalBooked()) / float64(d.TotalInventory)
}

// Revenue derives the day's booked revenue from the channel rate cards, net of
// channel commission.
func (d *DailyAllotment) Revenue(channels []Channel) decimal.Decimal {
	rates := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		rates[ch.Name] = ch
	}

	hundred := decimal.NewFromInt(100)
	total := decimal.Zero
	for _, c := range d.Channels {
		if c.Booked <= 0 {
			continue
		}
		cfg, ok := rates[c.ChannelName]
		if !ok {
			continue
		}
		gross := cfg.NightlyRate.Mul(decimal.NewFromInt(int64(c.Booked)))
		net := gross.Mul(hundred.Sub(cfg.Commission)).Div(hundred)
		total = total.Add(net)
	}
	return total
}

// RoomTypeAllotment is the aggregate view of a room type's allocation state
// over a date range.
type RoomTypeAllotment struct {
	RoomTypeID      string
	Channels        []Channel
	Method          AllocationMethod
	DailyAllotments map[string]DailyAllotment
	LastUpdated     time.Time
}
