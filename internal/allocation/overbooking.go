package allocation

import (
	"fmt"

	"github.com/cimillas/channel-inventory/internal/domain"
)

// Admit decides whether a proposed allocation vector is admissible for the
// day. The ceiling is the physical inventory, stretched by the overbooking
// margin when the tenant allows it. The reason names the exact overage so it
// can be surfaced to the operator.
func Admit(current domain.DailyAllotment, proposed map[string]int, g domain.GlobalDefaults) (bool, string) {
	sum := 0
	for _, units := range proposed {
		sum += units
	}

	capacity := g.MaxCapacity(current.TotalInventory)
	if sum <= capacity {
		return true, ""
	}
	return false, fmt.Sprintf("allocation %d exceeds capacity %d by %d", sum, capacity, sum-capacity)
}
