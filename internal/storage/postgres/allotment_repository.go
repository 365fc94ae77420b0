package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/channel-inventory/internal/app"
	"github.com/cimillas/channel-inventory/internal/domain"
)

// AllotmentRepository persists daily allotments as a parent row plus one row
// per channel. The parent carries the version column that backs optimistic
// concurrency.
type AllotmentRepository struct {
	pool *pgxpool.Pool
}

func NewAllotmentRepository(pool *pgxpool.Pool) *AllotmentRepository {
	return &AllotmentRepository{pool: pool}
}

func (r *AllotmentRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *AllotmentRepository) GetRoomType(ctx context.Context, roomTypeID string) (domain.RoomType, error) {
	const query = `SELECT id, name, physical_rooms, method, created_at FROM room_types WHERE id = $1`

	var rt domain.RoomType
	err := db(ctx, r.pool).QueryRow(ctx, query, roomTypeID).
		Scan(&rt.ID, &rt.Name, &rt.PhysicalRooms, &rt.Method, &rt.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.RoomType{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.RoomType{}, domain.ErrRoomTypeNotFound
		}
		return domain.RoomType{}, fmt.Errorf("get room type: %w", err)
	}
	return rt, nil
}

func (r *AllotmentRepository) ListChannels(ctx context.Context, roomTypeID string) ([]domain.Channel, error) {
	return listChannels(ctx, db(ctx, r.pool), roomTypeID)
}

func (r *AllotmentRepository) GetDailyForUpdate(ctx context.Context, roomTypeID string, date time.Time) (domain.DailyAllotment, error) {
	const query = `
SELECT id, room_type_id, date, total_inventory, warnings, version, created_at, updated_at
FROM daily_allotments
WHERE room_type_id = $1 AND date = $2
FOR UPDATE`

	q := db(ctx, r.pool)
	var d domain.DailyAllotment
	err := q.QueryRow(ctx, query, roomTypeID, domain.DayOf(date)).
		Scan(&d.ID, &d.RoomTypeID, &d.Date, &d.TotalInventory, &d.Warnings, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.DailyAllotment{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.DailyAllotment{}, domain.ErrAllotmentNotFound
		}
		return domain.DailyAllotment{}, fmt.Errorf("get daily allotment: %w", err)
	}
	d.Date = domain.DayOf(d.Date)

	channels, err := r.channelRows(ctx, q, d.ID)
	if err != nil {
		return domain.DailyAllotment{}, err
	}
	d.Channels = channels
	return d, nil
}

func (r *AllotmentRepository) ListDailyRange(ctx context.Context, roomTypeID string, from, to time.Time) ([]domain.DailyAllotment, error) {
	const query = `
SELECT id, room_type_id, date, total_inventory, warnings, version, created_at, updated_at
FROM daily_allotments
WHERE room_type_id = $1 AND date BETWEEN $2 AND $3
ORDER BY date`

	q := db(ctx, r.pool)
	rows, err := q.Query(ctx, query, roomTypeID, domain.DayOf(from), domain.DayOf(to))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list daily allotments: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyAllotment
	for rows.Next() {
		var d domain.DailyAllotment
		if err := rows.Scan(&d.ID, &d.RoomTypeID, &d.Date, &d.TotalInventory, &d.Warnings, &d.Version, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan daily allotment: %w", err)
		}
		d.Date = domain.DayOf(d.Date)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list daily allotments: %w", err)
	}

	for i := range out {
		channels, err := r.channelRows(ctx, q, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Channels = channels
	}
	return out, nil
}

func (r *AllotmentRepository) InsertDaily(ctx context.Context, d domain.DailyAllotment) error {
	const stmt = `
INSERT INTO daily_allotments (id, room_type_id, date, total_inventory, warnings, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	q := db(ctx, r.pool)
	_, err := q.Exec(ctx, stmt,
		d.ID, d.RoomTypeID, domain.DayOf(d.Date), d.TotalInventory, d.Warnings, d.Version, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrStaleVersion
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert daily allotment: %w", err)
	}
	return r.replaceChannelRows(ctx, q, d)
}

// UpdateDaily commits a mutated day only when the stored version still matches
// what the caller read. Zero rows affected means another writer got there
// first.
func (r *AllotmentRepository) UpdateDaily(ctx context.Context, d domain.DailyAllotment, expectedVersion int) error {
	const stmt = `
UPDATE daily_allotments
SET total_inventory = $1, warnings = $2, version = $3, updated_at = $4
WHERE id = $5 AND version = $6`

	q := db(ctx, r.pool)
	tag, err := q.Exec(ctx, stmt,
		d.TotalInventory, d.Warnings, d.Version, d.UpdatedAt, d.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update daily allotment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleVersion
	}
	return r.replaceChannelRows(ctx, q, d)
}

func (r *AllotmentRepository) ListDatesWithAllocation(ctx context.Context, roomTypeID, channelName string, from time.Time) ([]time.Time, error) {
	const query = `
SELECT da.date
FROM daily_allotments da
JOIN daily_allotment_channels dac ON dac.allotment_id = da.id
WHERE da.room_type_id = $1 AND dac.channel_name = $2 AND da.date >= $3 AND dac.allocated > 0
ORDER BY da.date`

	rows, err := db(ctx, r.pool).Query(ctx, query, roomTypeID, channelName, domain.DayOf(from))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list allocated dates: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scan allocated date: %w", err)
		}
		out = append(out, domain.DayOf(date))
	}
	return out, rows.Err()
}

func (r *AllotmentRepository) ListReleaseCandidates(ctx context.Context, from, to time.Time) ([]app.ReleaseCandidate, error) {
	const query = `
SELECT DISTINCT da.room_type_id, da.date
FROM daily_allotments da
JOIN daily_allotment_channels dac ON dac.allotment_id = da.id
WHERE da.date BETWEEN $1 AND $2 AND dac.held > 0 AND dac.released_at IS NULL
ORDER BY da.date`

	rows, err := db(ctx, r.pool).Query(ctx, query, domain.DayOf(from), domain.DayOf(to))
	if err != nil {
		return nil, fmt.Errorf("list release candidates: %w", err)
	}
	defer rows.Close()

	var out []app.ReleaseCandidate
	for rows.Next() {
		var c app.ReleaseCandidate
		if err := rows.Scan(&c.RoomTypeID, &c.Date); err != nil {
			return nil, fmt.Errorf("scan release candidate: %w", err)
		}
		c.Date = domain.DayOf(c.Date)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *AllotmentRepository) channelRows(ctx context.Context, q querier, allotmentID string) ([]domain.ChannelAllocation, error) {
	const query = `
SELECT channel_name, allocated, booked, held, released_at
FROM daily_allotment_channels
WHERE allotment_id = $1
ORDER BY position`

	rows, err := q.Query(ctx, query, allotmentID)
	if err != nil {
		return nil, fmt.Errorf("list allotment channels: %w", err)
	}
	defer rows.Close()

	var out []domain.ChannelAllocation
	for rows.Next() {
		var c domain.ChannelAllocation
		if err := rows.Scan(&c.ChannelName, &c.Allocated, &c.Booked, &c.Held, &c.ReleasedAt); err != nil {
			return nil, fmt.Errorf("scan allotment channel: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// replaceChannelRows rewrites the day's channel rows. Always called inside the
// surrounding transaction, after the version check has passed.
func (r *AllotmentRepository) replaceChannelRows(ctx context.Context, q querier, d domain.DailyAllotment) error {
	if _, err := q.Exec(ctx, `DELETE FROM daily_allotment_channels WHERE allotment_id = $1`, d.ID); err != nil {
		return fmt.Errorf("clear allotment channels: %w", err)
	}

	const stmt = `
INSERT INTO daily_allotment_channels (allotment_id, channel_name, allocated, booked, held, released_at, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for i, c := range d.Channels {
		if _, err := q.Exec(ctx, stmt, d.ID, c.ChannelName, c.Allocated, c.Booked, c.Held, c.ReleasedAt, i); err != nil {
			return fmt.Errorf("insert allotment channel %s: %w", c.ChannelName, err)
		}
	}
	return nil
}
