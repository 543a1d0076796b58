package postgres

import (
	"context"
	"fmt"
	"time"
)

// MarkEventProcessed records a provider event id. It returns false when the
// id was already recorded, which is how redelivered webhooks are detected.
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType, orderID string, at time.Time) (bool, error) {
	const stmt = `
INSERT INTO processed_webhook_events (event_id, event_type, order_id, processed_at)
VALUES ($1, $2, $3::uuid, $4)
ON CONFLICT (event_id) DO NOTHING`

	tag, err := s.exec(ctx, stmt, eventID, eventType, nullable(orderID), at)
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
