// Package fleet manages the agent roster.
package fleet

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/store"
)

// Service creates, edits and removes agents.
type Service struct {
	store        *store.Store
	origin       models.Coordinates
	historyLimit int
	logger       zerolog.Logger
}

// NewService creates a Service. New agents are placed at origin.
func NewService(st *store.Store, origin models.Coordinates, historyLimit int) *Service {
	if origin == (models.Coordinates{}) {
		origin = models.AgentReferencePoint
	}
	if historyLimit <= 0 {
		historyLimit = models.DefaultRouteHistoryLimit
	}
	return &Service{
		store:        st,
		origin:       origin,
		historyLimit: historyLimit,
		logger:       logging.Component("fleet"),
	}
}

// CreateAgent adds an agent with a full battery at the origin.
func (s *Service) CreateAgent(ctx context.Context, name string, status models.AgentStatus) (*models.Agent, error) {
	return s.createAgent(ctx, "", name, status)
}

// CreateAgentWithID is CreateAgent with a caller-chosen id.
func (s *Service) CreateAgentWithID(ctx context.Context, id, name string, status models.AgentStatus) (*models.Agent, error) {
	if _, ok := s.store.GetAgent(id); ok {
		return nil, fmt.Errorf("agent %s already exists", id)
	}
	return s.createAgent(ctx, id, name, status)
}

func (s *Service) createAgent(ctx context.Context, id, name string, status models.AgentStatus) (*models.Agent, error) {
	if status == "" {
		status = models.AgentStatusOnline
	}
	battery := 100
	var out *models.Agent
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		agent, err := tx.UpsertAgent(models.AgentPatch{
			ID:           id,
			Name:         &name,
			Status:       &status,
			BatteryLevel: &battery,
			LastLocation: &models.Location{Lat: s.origin.Lat, Lng: s.origin.Lng, Timestamp: tx.Now()},
		})
		if err != nil {
			return err
		}
		out = agent.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger := logging.WithAgent(s.logger, out.ID)
	logger.Info().Str("name", out.Name).Msg("agent created")
	return out, nil
}

// AgentEdit holds the editable agent fields. Nil fields are left untouched.
type AgentEdit struct {
	Name   *string
	Status *models.AgentStatus
}

// EditAgent merges edit onto the agent. An unknown id is a no-op and
// returns (nil, nil).
func (s *Service) EditAgent(ctx context.Context, id string, edit AgentEdit) (*models.Agent, error) {
	var out *models.Agent
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		if _, ok := tx.Agent(id); !ok {
			return nil
		}
		agent, err := tx.UpsertAgent(models.AgentPatch{ID: id, Name: edit.Name, Status: edit.Status})
		if err != nil {
			return err
		}
		out = agent.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus changes only the agent's status.
func (s *Service) SetStatus(ctx context.Context, id string, status models.AgentStatus) (*models.Agent, error) {
	return s.EditAgent(ctx, id, AgentEdit{Status: &status})
}

// DeleteAgent removes the agent and all of its tasks.
func (s *Service) DeleteAgent(ctx context.Context, id string) bool {
	removed := s.store.DeleteAgent(ctx, id)
	if removed {
		logger := logging.WithAgent(s.logger, id)
		logger.Info().Msg("agent deleted")
	}
	return removed
}

// RecordFix appends a position fix to the agent's route. A zero timestamp
// means now.
func (s *Service) RecordFix(ctx context.Context, id string, fix models.Location) error {
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		if fix.Timestamp.IsZero() {
			fix.Timestamp = tx.Now()
		}
		fix.Timestamp = fix.Timestamp.UTC()
		if !tx.MutateAgent(id, func(a *models.Agent) {
			a.AppendLocation(fix, s.historyLimit)
		}) {
			return models.ErrAgentNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record fix for agent %s: %w", id, err)
	}
	return nil
}

// ListAgents returns the roster in insertion order.
func (s *Service) ListAgents() []*models.Agent {
	return s.store.ListAgents()
}

// GetAgent returns one agent.
func (s *Service) GetAgent(id string) (*models.Agent, error) {
	agent, ok := s.store.GetAgent(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAgentNotFound, id)
	}
	return agent, nil
}
