package domain

import (
	"fmt"
	"time"
)

// AllocationMethod selects how baseline channel targets are computed.
type AllocationMethod string

const (
	MethodPercentage AllocationMethod = "PERCENTAGE"
	MethodFixed      AllocationMethod = "FIXED"
	MethodPriority   AllocationMethod = "PRIORITY"
	MethodDynamic    AllocationMethod = "DYNAMIC"
)

// Valid reports whether m is one of the supported methods.
func (m AllocationMethod) Valid() bool {
	switch m {
	case MethodPercentage, MethodFixed, MethodPriority, MethodDynamic:
		return true
	}
	return false
}

// GlobalDefaults is the tenant-wide configuration consumed when materializing
// new daily allotments. It is stored as a single versioned row and passed into
// every allocation computation as an immutable snapshot.
type GlobalDefaults struct {
	TotalInventory          int
	DefaultAllocationMethod AllocationMethod
	OverbookingAllowed      bool
	OverbookingLimit        int // percent over physical inventory, 0-50
	ReleaseWindow           int // hours before check-in, 1-168
	AutoRelease             bool
	BlockPeriod             int // days
	Currency                string
	Timezone                string
	UpdatedAt               time.Time
}

// Validate enforces the settings ranges accepted by SaveSettings.
func (g GlobalDefaults) Validate() error {
	if g.TotalInventory < 1 || g.TotalInventory > 1000 {
		return fmt.Errorf("totalInventory %d outside [1,1000]: %w", g.TotalInventory, ErrInvalidSettings)
	}
	if !g.DefaultAllocationMethod.Valid() {
		return fmt.Errorf("defaultAllocationMethod %q: %w", g.DefaultAllocationMethod, ErrUnknownMethod)
	}
	if g.OverbookingLimit < 0 || g.OverbookingLimit > 50 {
		return fmt.Errorf("overbookingLimit %d outside [0,50]: %w", g.OverbookingLimit, ErrInvalidSettings)
	}
	if g.ReleaseWindow < 1 || g.ReleaseWindow > 168 {
		return fmt.Errorf("releaseWindow %d outside [1,168]: %w", g.ReleaseWindow, ErrInvalidSettings)
	}
	if g.BlockPeriod < 0 {
		return fmt.Errorf("blockPeriod %d negative: %w", g.BlockPeriod, ErrInvalidSettings)
	}
	if g.Currency == "" {
		return fmt.Errorf("currency required: %w", ErrInvalidSettings)
	}
	if g.Timezone == "" {
		return fmt.Errorf("timezone required: %w", ErrInvalidSettings)
	}
	return nil
}

// MaxCapacity returns the admissible allocation ceiling for a day with the
// given physical inventory, accounting for the overbooking margin.
func (g GlobalDefaults) MaxCapacity(totalInventory int) int {
	if !g.OverbookingAllowed {
		return totalInventory
	}
	return totalInventory * (100 + g.OverbookingLimit) / 100
}
