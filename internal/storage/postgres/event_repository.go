package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/channel-inventory/internal/domain"
)

// EventRepository appends allotment events for the notification subsystem to
// drain.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) Record(ctx context.Context, ev domain.AllotmentEvent) error {
	const stmt = `
INSERT INTO allotment_events (id, room_type_id, date, type, channel_name, quantity, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := db(ctx, r.pool).Exec(ctx, stmt,
		ev.ID, ev.RoomTypeID, domain.DayOf(ev.Date), ev.Type, ev.ChannelName, ev.Quantity, ev.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("record allotment event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByRoomType(ctx context.Context, roomTypeID string, limit int) ([]domain.AllotmentEvent, error) {
	const query = `
SELECT id, room_type_id, date, type, channel_name, quantity, created_at
FROM allotment_events
WHERE room_type_id = $1
ORDER BY created_at DESC
LIMIT $2`

	rows, err := db(ctx, r.pool).Query(ctx, query, roomTypeID, limit)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list allotment events: %w", err)
	}
	defer rows.Close()

	var out []domain.AllotmentEvent
	for rows.Next() {
		var ev domain.AllotmentEvent
		if err := rows.Scan(&ev.ID, &ev.RoomTypeID, &ev.Date, &ev.Type, &ev.ChannelName, &ev.Quantity, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan allotment event: %w", err)
		}
		ev.Date = domain.DayOf(ev.Date)
		out = append(out, ev)
	}
	return out, rows.Err()
}
