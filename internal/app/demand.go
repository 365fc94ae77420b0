package app

import (
	"context"
	"time"
)

// DemandSignal supplies per-channel demand multipliers for the DYNAMIC
// allocation method. Implementations typically query an external forecasting
// service for booking velocity over the trailing days; the engine only
// consumes the resulting multipliers.
type DemandSignal interface {
	Multipliers(ctx context.Context, roomTypeID string, date time.Time) (map[string]float64, error)
}

// NeutralDemand reports no demand adjustment. Used when no forecasting
// service is wired.
type NeutralDemand struct{}

func (NeutralDemand) Multipliers(context.Context, string, time.Time) (map[string]float64, error) {
	return nil, nil
}

// StaticDemand returns a fixed multiplier map regardless of room type or
// date. Useful in tests and for manual overrides.
type StaticDemand map[string]float64

func (d StaticDemand) Multipliers(context.Context, string, time.Time) (map[string]float64, error) {
	return d, nil
}
