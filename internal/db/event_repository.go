package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tOgg1/geoforce/internal/models"
)

const eventColumns = `SELECT seq, id, timestamp, type, entity_type, entity_id FROM events`

// Event repository errors.
var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event")
)

// EventRepository persists the activity log. Rows keep insertion order, so
// events sharing a timestamp list in the order they were appended.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventQuery narrows Query. Nil filters match everything; Limit defaults
// to 100.
type EventQuery struct {
	Type       *models.EventType
	EntityType *models.EntityType
	EntityID   *string
	Since      *time.Time // inclusive
	Cursor     string
	Limit      int
}

// EventPage is one page of Query results.
type EventPage struct {
	Events     []*models.Event
	NextCursor string
}

// Append adds an event to the log, assigning an ID and timestamp when unset.
// Returns ErrInvalidEvent if the type or entity type is missing.
func (r *EventRepository) Append(ctx context.Context, event *models.Event) error {
	if event.Type == "" || event.EntityType == "" {
		return ErrInvalidEvent
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, timestamp, type, entity_type, entity_id)
		VALUES (?, ?, ?, ?, ?)
	`,
		event.ID,
		formatTime(event.Timestamp),
		string(event.Type),
		string(event.EntityType),
		event.EntityID,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Get retrieves an event by ID.
func (r *EventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	event, _, err := scanEvent(r.db.QueryRowContext(ctx, eventColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return event, err
}

// Query pages through matching events oldest first. Pass the returned
// NextCursor back in to fetch the following page.
func (r *EventRepository) Query(ctx context.Context, q EventQuery) (*EventPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var (
		where []string
		args  []any
	)
	cond := func(clause string, arg any) {
		where = append(where, clause)
		args = append(args, arg)
	}
	if q.Type != nil {
		cond("type = ?", string(*q.Type))
	}
	if q.EntityType != nil {
		cond("entity_type = ?", string(*q.EntityType))
	}
	if q.EntityID != nil {
		cond("entity_id = ?", *q.EntityID)
	}
	if q.Since != nil {
		cond("timestamp >= ?", formatTime(*q.Since))
	}
	if q.Cursor != "" {
		after, err := strconv.ParseInt(q.Cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q", q.Cursor)
		}
		cond("seq > ?", after)
	}

	stmt := eventColumns
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	// One extra row tells us whether another page exists.
	events, seqs, err := r.list(ctx, stmt+" ORDER BY seq LIMIT ?", append(args, limit+1)...)
	if err != nil {
		return nil, err
	}

	if len(events) <= limit {
		return &EventPage{Events: events}, nil
	}
	return &EventPage{
		Events:     events[:limit],
		NextCursor: strconv.FormatInt(seqs[limit-1], 10),
	}, nil
}

// Recent returns the newest limit events, oldest first.
func (r *EventRepository) Recent(ctx context.Context, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	events, _, err := r.list(ctx, `
		SELECT seq, id, timestamp, type, entity_type, entity_id
		FROM (SELECT * FROM events ORDER BY seq DESC LIMIT ?)
		ORDER BY seq
	`, limit)
	return events, err
}

// Count returns the total number of events.
func (r *EventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// DeleteExcess keeps the newest maxCount events and reports how many older
// ones were removed. A non-positive maxCount keeps everything.
func (r *EventRepository) DeleteExcess(ctx context.Context, maxCount int) (int64, error) {
	if maxCount <= 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM events WHERE seq <= (
			SELECT seq FROM events ORDER BY seq DESC LIMIT 1 OFFSET ?
		)
	`, maxCount)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return result.RowsAffected()
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]*models.Event, []int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	var seqs []int64
	for rows.Next() {
		event, seq, err := scanEvent(rows)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, event)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, seqs, nil
}

func scanEvent(scanner interface{ Scan(...any) error }) (*models.Event, int64, error) {
	var (
		event                             models.Event
		seq                               int64
		timestamp, eventType, entityType string
	)
	if err := scanner.Scan(&seq, &event.ID, &timestamp, &eventType, &entityType, &event.EntityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("scan event: %w", err)
	}
	event.Type = models.EventType(eventType)
	event.EntityType = models.EntityType(entityType)
	event.Timestamp = parseTime(timestamp)
	return &event, seq, nil
}
