package domain

import "fmt"

// Warning codes attached to a daily allotment. Warnings are advisory: they
// never reject an operation.
const (
	WarnLowRemaining     = "low_remaining"
	WarnCapacityExceeded = "capacity_exceeded"
	WarnChannelStarved   = "channel_starved"
	WarnStaleBooked      = "booked_exceeds_allocated"
)

// EvaluateWarnings recomputes the warning list from the current channel state.
// Called while the per-day guard is still held, so readers never observe a
// stale list.
func (d *DailyAllotment) EvaluateWarnings(g GlobalDefaults) {
	warnings := make([]string, 0, len(d.Channels))

	capacity := g.MaxCapacity(d.TotalInventory)
	totalAllocated := d.TotalAllocated()
	if totalAllocated > capacity {
		warnings = append(warnings, fmt.Sprintf("%s: allocated %d exceeds capacity %d", WarnCapacityExceeded, totalAllocated, capacity))
	}

	for _, c := range d.Channels {
		if c.Booked > c.Allocated {
			warnings = append(warnings, fmt.Sprintf("%s: %s booked %d over allocation %d", WarnStaleBooked, c.ChannelName, c.Booked, c.Allocated))
			continue
		}
		if c.Allocated == 0 && totalAllocated > 0 {
			warnings = append(warnings, fmt.Sprintf("%s: %s received no inventory", WarnChannelStarved, c.ChannelName))
			continue
		}
		// remaining < allocated * 0.2
		if c.Allocated > 0 && c.Remaining()*5 < c.Allocated {
			warnings = append(warnings, fmt.Sprintf("%s: %s has %d of %d left", WarnLowRemaining, c.ChannelName, c.Remaining(), c.Allocated))
		}
	}

	d.Warnings = warnings
}
