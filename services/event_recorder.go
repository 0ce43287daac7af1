package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifeQuestAPI/internal/event"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so services can run
// the same queries inside or outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventRecorder appends typed progression events for the external
// notification/narrative subsystem to drain. The core never renders text.
type EventRecorder struct {
	db *pgxpool.Pool
}

func NewEventRecorder(db *pgxpool.Pool) *EventRecorder {
	return &EventRecorder{db: db}
}

// Record appends one event using the given executor so events land in the
// same transaction as the state change that produced them.
func (r *EventRecorder) Record(ctx context.Context, tx dbtx, userID uuid.UUID, kind event.Kind, value int64) error {
	query := `
	INSERT INTO progression_events (id, user_id, kind, value, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	`

	_, err := tx.Exec(ctx, query, uuid.New(), userID, kind, value)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", kind, err)
	}

	log.Printf("Event: %s user=%s value=%d", kind, userID, value)
	return nil
}
