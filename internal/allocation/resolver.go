// Package allocation holds the pure policy pieces of the engine: the method
// resolver that turns channel baselines into per-channel targets, and the
// overbooking gate that decides whether a proposed vector is admissible.
package allocation

import (
	"fmt"
	"math"
	"sort"

	"github.com/cimillas/channel-inventory/internal/domain"
)

// Demand multipliers outside this range are clamped before applying.
const (
	minMultiplier = 0.5
	maxMultiplier = 1.5
)

// Plan is the advisory output of a resolver run. Targets never sum above the
// day's total inventory except for the FIXED method, which reports the excess
// as a warning and leaves admission to the overbooking policy.
type Plan struct {
	Targets  map[string]int
	Warnings []string
}

// Sum returns the total units the plan assigns.
func (p Plan) Sum() int {
	total := 0
	for _, t := range p.Targets {
		total += t
	}
	return total
}

// Resolve computes per-channel allocation targets for the given method.
// multipliers carries the external demand signal consumed by DYNAMIC; it is
// ignored by every other method and may be nil.
func Resolve(method domain.AllocationMethod, totalInventory int, channels []domain.Channel, multipliers map[string]float64) (Plan, error) {
	if totalInventory < 0 {
		return Plan{}, domain.ErrInvalidQuantity
	}

	switch method {
	case domain.MethodPercentage:
		return resolvePercentage(totalInventory, channels), nil
	case domain.MethodFixed:
		return resolveFixed(totalInventory, channels), nil
	case domain.MethodPriority:
		return resolvePriority(totalInventory, channels), nil
	case domain.MethodDynamic:
		return resolveDynamic(totalInventory, channels, multipliers), nil
	default:
		return Plan{}, fmt.Errorf("%q: %w", method, domain.ErrUnknownMethod)
	}
}

func resolvePercentage(total int, channels []domain.Channel) Plan {
	plan := Plan{Targets: make(map[string]int, len(channels))}
	if len(channels) == 0 {
		return plan
	}

	sum := 0
	for _, ch := range channels {
		sum += ch.Allocation
	}
	if sum <= 0 {
		for _, ch := range channels {
			plan.Targets[ch.Name] = 0
		}
		plan.Warnings = append(plan.Warnings, "channel percentages sum to 0, nothing allocated")
		return plan
	}

	denom := 100
	if sum != 100 {
		denom = sum
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("channel percentages sum to %d, scaling proportionally", sum))
	}

	assigned := 0
	for _, ch := range channels {
		target := total * ch.Allocation / denom
		plan.Targets[ch.Name] = target
		assigned += target
	}

	// Rounding residue goes to the highest-priority channel so the targets
	// sum exactly to the inventory.
	if residual := total - assigned; residual > 0 {
		plan.Targets[topPriority(channels).Name] += residual
	}
	return plan
}

func resolveFixed(total int, channels []domain.Channel) Plan {
	plan := Plan{Targets: make(map[string]int, len(channels))}
	sum := 0
	for _, ch := range channels {
		plan.Targets[ch.Name] = ch.Allocation
		sum += ch.Allocation
	}
	if sum > total {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("capacity exceeded: configured allocations sum to %d against inventory %d", sum, total))
	}
	return plan
}

func resolvePriority(total int, channels []domain.Channel) Plan {
	plan := Plan{Targets: make(map[string]int, len(channels))}
	remaining := total
	for _, ch := range sortedByPriority(channels) {
		take := ch.Allocation
		if take > remaining {
			take = remaining
		}
		plan.Targets[ch.Name] = take
		remaining -= take
		if take == 0 && ch.Allocation > 0 {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("channel %s starved", ch.Name))
		}
	}
	return plan
}

func resolveDynamic(total int, channels []domain.Channel, multipliers map[string]float64) Plan {
	plan := resolvePriority(total, channels)

	sum := 0
	for name, base := range plan.Targets {
		m, ok := multipliers[name]
		if !ok {
			m = 1
		}
		m = math.Min(math.Max(m, minMultiplier), maxMultiplier)
		target := int(math.Round(float64(base) * m))
		plan.Targets[name] = target
		sum += target
	}

	if sum <= total {
		return plan
	}

	// Re-normalize so boosted channels cannot push the day over inventory.
	scaled := 0
	for name, target := range plan.Targets {
		plan.Targets[name] = target * total / sum
		scaled += plan.Targets[name]
	}
	if residual := total - scaled; residual > 0 && len(channels) > 0 {
		plan.Targets[topPriority(channels).Name] += residual
	}
	return plan
}

// sortedByPriority orders ascending by priority value; the stable sort keeps
// insertion order as the tie-break.
func sortedByPriority(channels []domain.Channel) []domain.Channel {
	sorted := make([]domain.Channel, len(channels))
	copy(sorted, channels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

func topPriority(channels []domain.Channel) domain.Channel {
	top := channels[0]
	for _, ch := range channels[1:] {
		if ch.Priority < top.Priority {
			top = ch
		}
	}
	return top
}
