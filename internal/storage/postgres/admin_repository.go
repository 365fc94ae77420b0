package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cimillas/channel-inventory/internal/domain"
)

// AdminRepository persists the room type and channel catalog.
type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateRoomType(ctx context.Context, rt domain.RoomType) error {
	const stmt = `
INSERT INTO room_types (id, name, physical_rooms, method, created_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := db(ctx, r.pool).Exec(ctx, stmt, rt.ID, rt.Name, rt.PhysicalRooms, rt.Method, rt.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRoomTypeExists
		}
		return fmt.Errorf("create room type: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	const query = `SELECT id, name, physical_rooms, method, created_at FROM room_types ORDER BY created_at`

	rows, err := db(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list room types: %w", err)
	}
	defer rows.Close()

	var out []domain.RoomType
	for rows.Next() {
		var rt domain.RoomType
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.PhysicalRooms, &rt.Method, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room type: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *AdminRepository) GetRoomType(ctx context.Context, roomTypeID string) (domain.RoomType, error) {
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

func (r *AdminRepository) CreateChannel(ctx context.Context, ch domain.Channel) error {
	const stmt = `
INSERT INTO channels
  (id, room_type_id, name, type, allocation, priority, commission, nightly_rate,
   min_stay, max_stay, closed_to_arrival, closed_to_departure, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := db(ctx, r.pool).Exec(ctx, stmt,
		ch.ID, ch.RoomTypeID, ch.Name, ch.Type, ch.Allocation, ch.Priority,
		ch.Commission.String(), ch.NightlyRate.String(),
		ch.Restrictions.MinStay, ch.Restrictions.MaxStay,
		ch.Restrictions.ClosedToArrival, ch.Restrictions.ClosedToDeparture,
		ch.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrChannelExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create channel: %w", err)
	}
	return nil
}

func (r *AdminRepository) UpdateChannel(ctx context.Context, ch domain.Channel) error {
	const stmt = `
UPDATE channels
SET name = $1, type = $2, allocation = $3, priority = $4, commission = $5, nightly_rate = $6,
    min_stay = $7, max_stay = $8, closed_to_arrival = $9, closed_to_departure = $10
WHERE id = $11`

	tag, err := db(ctx, r.pool).Exec(ctx, stmt,
		ch.Name, ch.Type, ch.Allocation, ch.Priority,
		ch.Commission.String(), ch.NightlyRate.String(),
		ch.Restrictions.MinStay, ch.Restrictions.MaxStay,
		ch.Restrictions.ClosedToArrival, ch.Restrictions.ClosedToDeparture,
		ch.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrChannelExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}

func (r *AdminRepository) DeleteChannel(ctx context.Context, roomTypeID, channelName string) error {
	const stmt = `DELETE FROM channels WHERE room_type_id = $1 AND name = $2`

	tag, err := db(ctx, r.pool).Exec(ctx, stmt, roomTypeID, channelName)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}

func (r *AdminRepository) ListChannels(ctx context.Context, roomTypeID string) ([]domain.Channel, error) {
	return listChannels(ctx, db(ctx, r.pool), roomTypeID)
}

func (r *AdminRepository) HasFutureAllocation(ctx context.Context, roomTypeID, channelName string, from time.Time) (bool, error) {
	const query = `
SELECT EXISTS (
  SELECT 1
  FROM daily_allotments da
  JOIN daily_allotment_channels dac ON dac.allotment_id = da.id
  WHERE da.room_type_id = $1 AND dac.channel_name = $2 AND da.date >= $3 AND dac.allocated > 0
)`

	var exists bool
	err := db(ctx, r.pool).QueryRow(ctx, query, roomTypeID, channelName, domain.DayOf(from)).Scan(&exists)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check future allocation: %w", err)
	}
	return exists, nil
}

// listChannels is shared with AllotmentRepository; channels come back in the
// priority order the resolver fills in, created_at breaking ties.
func listChannels(ctx context.Context, q querier, roomTypeID string) ([]domain.Channel, error) {
	const query = `
SELECT id, room_type_id, name, type, allocation, priority, commission::text, nightly_rate::text,
       min_stay, max_stay, closed_to_arrival, closed_to_departure, created_at
FROM channels
WHERE room_type_id = $1
ORDER BY priority, created_at`

	rows, err := q.Query(ctx, query, roomTypeID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var out []domain.Channel
	for rows.Next() {
		var (
			ch               domain.Channel
			commission, rate string
		)
		err := rows.Scan(&ch.ID, &ch.RoomTypeID, &ch.Name, &ch.Type, &ch.Allocation, &ch.Priority,
			&commission, &rate,
			&ch.Restrictions.MinStay, &ch.Restrictions.MaxStay,
			&ch.Restrictions.ClosedToArrival, &ch.Restrictions.ClosedToDeparture,
			&ch.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		if ch.Commission, err = decimal.NewFromString(commission); err != nil {
			return nil, fmt.Errorf("parse commission for %s: %w", ch.Name, err)
		}
		if ch.NightlyRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("parse nightly rate for %s: %w", ch.Name, err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
