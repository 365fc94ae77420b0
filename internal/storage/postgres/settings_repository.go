package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/channel-inventory/internal/domain"
	"github.com/cimillas/channel-inventory/internal/storage/rediscache"
)

const (
	settingsCacheKey = "channel-inventory:settings"
	settingsCacheTTL = 5 * time.Minute
)

// SettingsRepository persists the single tenant-wide defaults row, with an
// optional read-through cache in front of it. The cache is invalidated on
// every save.
type SettingsRepository struct {
	pool  *pgxpool.Pool
	cache rediscache.Client
}

func NewSettingsRepository(pool *pgxpool.Pool, cache rediscache.Client) *SettingsRepository {
	return &SettingsRepository{pool: pool, cache: cache}
}

// cached mirrors GlobalDefaults for the cache payload; the DB row stays the
// source of truth for field names.
type cachedDefaults struct {
	TotalInventory          int       `json:"totalInventory"`
	DefaultAllocationMethod string    `json:"defaultAllocationMethod"`
	OverbookingAllowed      bool      `json:"overbookingAllowed"`
	OverbookingLimit        int       `json:"overbookingLimit"`
	ReleaseWindow           int       `json:"releaseWindow"`
	AutoRelease             bool      `json:"autoRelease"`
	BlockPeriod             int       `json:"blockPeriod"`
	Currency                string    `json:"currency"`
	Timezone                string    `json:"timezone"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

func (r *SettingsRepository) Get(ctx context.Context) (domain.GlobalDefaults, error) {
	// Cache trouble never blocks a read; any miss or error falls through to
	// the DB.
	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, settingsCacheKey); err == nil {
			var c cachedDefaults
			if json.Unmarshal([]byte(raw), &c) == nil {
				return fromCached(c), nil
			}
		}
	}

	const query = `
SELECT total_inventory, default_allocation_method, overbooking_allowed, overbooking_limit,
       release_window, auto_release, block_period, currency, timezone, updated_at
FROM global_defaults
WHERE id = 1`

	var g domain.GlobalDefaults
	err := db(ctx, r.pool).QueryRow(ctx, query).Scan(
		&g.TotalInventory, &g.DefaultAllocationMethod, &g.OverbookingAllowed, &g.OverbookingLimit,
		&g.ReleaseWindow, &g.AutoRelease, &g.BlockPeriod, &g.Currency, &g.Timezone, &g.UpdatedAt)
	if err != nil {
		return domain.GlobalDefaults{}, fmt.Errorf("get settings: %w", err)
	}

	if r.cache != nil {
		if payload, err := json.Marshal(toCached(g)); err == nil {
			_ = r.cache.Set(ctx, settingsCacheKey, payload, settingsCacheTTL)
		}
	}
	return g, nil
}

func (r *SettingsRepository) Save(ctx context.Context, g domain.GlobalDefaults) error {
	const stmt = `
UPDATE global_defaults
SET total_inventory = $1, default_allocation_method = $2, overbooking_allowed = $3,
    overbooking_limit = $4, release_window = $5, auto_release = $6, block_period = $7,
    currency = $8, timezone = $9, updated_at = $10
WHERE id = 1`

	tag, err := db(ctx, r.pool).Exec(ctx, stmt,
		g.TotalInventory, g.DefaultAllocationMethod, g.OverbookingAllowed,
		g.OverbookingLimit, g.ReleaseWindow, g.AutoRelease, g.BlockPeriod,
		g.Currency, g.Timezone, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save settings: defaults row missing")
	}

	if r.cache != nil {
		_ = r.cache.Delete(ctx, settingsCacheKey)
	}
	return nil
}

func toCached(g domain.GlobalDefaults) cachedDefaults {
	return cachedDefaults{
		TotalInventory:          g.TotalInventory,
		DefaultAllocationMethod: string(g.DefaultAllocationMethod),
		OverbookingAllowed:      g.OverbookingAllowed,
		OverbookingLimit:        g.OverbookingLimit,
		ReleaseWindow:           g.ReleaseWindow,
		AutoRelease:             g.AutoRelease,
		BlockPeriod:             g.BlockPeriod,
		Currency:                g.Currency,
		Timezone:                g.Timezone,
		UpdatedAt:               g.UpdatedAt,
	}
}

func fromCached(c cachedDefaults) domain.GlobalDefaults {
	return domain.GlobalDefaults{
		TotalInventory:          c.TotalInventory,
		DefaultAllocationMethod: domain.AllocationMethod(c.DefaultAllocationMethod),
		OverbookingAllowed:      c.OverbookingAllowed,
		OverbookingLimit:        c.OverbookingLimit,
		ReleaseWindow:           c.ReleaseWindow,
		AutoRelease:             c.AutoRelease,
		BlockPeriod:             c.BlockPeriod,
		Currency:                c.Currency,
		Timezone:                c.Timezone,
		UpdatedAt:               c.UpdatedAt,
	}
}
