// Package activity records agent and task lifecycle events into the
// persisted event log.
package activity

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/db"
	"github.com/tOgg1/geoforce/internal/events"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
)

// SubscriberID is the publisher subscription used by the recorder.
const SubscriberID = "activity"

// RecordedTypes lists the event types kept in the log. Agent updates are
// left out since telemetry produces one per agent per tick.
var RecordedTypes = []models.EventType{
	models.EventTypeAgentCreated,
	models.EventTypeAgentDeleted,
	models.EventTypeTaskCreated,
	models.EventTypeTaskUpdated,
	models.EventTypeTaskDeleted,
}

// Recorder appends published lifecycle events to an EventRepository and
// prunes the log down to a fixed size.
type Recorder struct {
	repo      *db.EventRepository
	maxEvents int
	logger    zerolog.Logger
}

// NewRecorder creates a recorder keeping at most maxEvents rows.
func NewRecorder(repo *db.EventRepository, maxEvents int) *Recorder {
	return &Recorder{
		repo:      repo,
		maxEvents: maxEvents,
		logger:    logging.Component("activity"),
	}
}

// Attach subscribes the recorder to p.
func (r *Recorder) Attach(p events.Publisher) error {
	return p.Subscribe(SubscriberID, events.Filter{EventTypes: RecordedTypes}, r.Record)
}

// Record stores one event. Failures are logged; the log is best effort and
// never blocks a store operation.
func (r *Recorder) Record(ctx context.Context, ev *models.Event) {
	entry := &models.Event{
		Timestamp:  ev.Timestamp,
		Type:       ev.Type,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		r.logger.Warn().Err(err).Str("type", string(ev.Type)).Msg("record activity failed")
		return
	}
	if r.maxEvents <= 0 {
		return
	}
	if pruned, err := r.repo.DeleteExcess(ctx, r.maxEvents); err != nil {
		r.logger.Warn().Err(err).Msg("prune activity failed")
	} else if pruned > 0 {
		r.logger.Debug().Int64("pruned", pruned).Msg("activity log pruned")
	}
}
