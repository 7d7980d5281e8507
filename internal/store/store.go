// Package store holds the authoritative in-memory agent and task collections.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/events"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
)

// Option configures a Store.
type Option func(*Store)

// WithPublisher publishes change events after every committed operation.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides the generator used for records inserted without an ID.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// Store is the single mutation point for agents and tasks. Collections keep
// insertion order. Every exported mutation is one logical operation: it
// either commits completely and publishes its events, or leaves the store
// untouched.
type Store struct {
	mu     sync.Mutex
	agents collection[models.Agent]
	tasks  collection[models.Task]

	publisher events.Publisher
	now       func() time.Time
	newID     func() string
	logger    zerolog.Logger
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		logger: logging.Component("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.agents.init()
	s.tasks.init()
	return s
}

// Update runs fn as one logical operation. If fn returns an error or panics
// every change it made is rolled back and nothing is published; the panic is
// then re-raised.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	pending, err := s.apply(fn)
	if err != nil {
		return err
	}
	s.publish(ctx, pending)
	return nil
}

func (s *Store) apply(fn func(tx *Tx) error) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	backupAgents := s.agents.clone((*models.Agent).Clone)
	backupTasks := s.tasks.clone((*models.Task).Clone)

	committed := false
	defer func() {
		if !committed {
			s.agents = backupAgents
			s.tasks = backupTasks
		}
	}()

	tx := &Tx{store: s, now: s.now().UTC()}
	if err := fn(tx); err != nil {
		return nil, err
	}
	committed = true
	return tx.events, nil
}

// UpsertAgent inserts the agent when its ID is unknown, otherwise merges the
// patch onto the existing record.
func (s *Store) UpsertAgent(ctx context.Context, patch models.AgentPatch) (*models.Agent, error) {
	var out *models.Agent
	err := s.Update(ctx, func(tx *Tx) error {
		agent, err := tx.UpsertAgent(patch)
		if err != nil {
			return err
		}
		out = agent.Clone()
		return nil
	})
	return out, err
}

// DeleteAgent removes the agent and every task assigned to it. It reports
// whether the agent existed; an unknown ID is a no-op.
func (s *Store) DeleteAgent(ctx context.Context, id string) bool {
	var removed bool
	_ = s.Update(ctx, func(tx *Tx) error {
		removed = tx.DeleteAgent(id)
		return nil
	})
	return removed
}

// UpsertTask inserts the task when its ID is unknown, otherwise merges the
// patch onto the existing record.
func (s *Store) UpsertTask(ctx context.Context, patch models.TaskPatch) (*models.Task, error) {
	var out *models.Task
	err := s.Update(ctx, func(tx *Tx) error {
		task, err := tx.UpsertTask(patch)
		if err != nil {
			return err
		}
		out = task.Clone()
		return nil
	})
	return out, err
}

// DeleteTask removes a task. An unknown ID is a no-op.
func (s *Store) DeleteTask(ctx context.Context, id string) bool {
	var removed bool
	_ = s.Update(ctx, func(tx *Tx) error {
		removed = tx.DeleteTask(id)
		return nil
	})
	return removed
}

// Replace swaps both collections wholesale, dropping tasks whose agent is
// not in agents. It publishes EventTypeStoreReplaced rather than a commit.
func (s *Store) Replace(ctx context.Context, agents []*models.Agent, tasks []*models.Task) {
	s.mu.Lock()
	s.agents.init()
	s.tasks.init()
	for _, a := range agents {
		if a == nil || s.agents.has(a.ID) {
			continue
		}
		clone := a.Clone()
		if clone.RouteHistory == nil {
			clone.RouteHistory = []models.Location{}
		}
		s.agents.add(clone.ID, clone)
	}
	dropped := 0
	for _, t := range tasks {
		if t == nil || s.tasks.has(t.ID) {
			continue
		}
		if !s.agents.has(t.AgentID) {
			dropped++
			continue
		}
		s.tasks.add(t.ID, t.Clone())
	}
	agentCount, taskCount := s.agents.len(), s.tasks.len()
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warn().Int("dropped", dropped).Msg("dropped tasks referencing unknown agents")
	}
	s.logger.Debug().Int("agents", agentCount).Int("tasks", taskCount).Msg("store replaced")

	if s.publisher != nil {
		s.publisher.Publish(ctx, &models.Event{
			ID:         uuid.New().String(),
			Timestamp:  s.now().UTC(),
			Type:       models.EventTypeStoreReplaced,
			EntityType: models.EntityTypeStore,
		})
	}
}

// ListAgents returns a copy of all agents in insertion order.
func (s *Store) ListAgents() []*models.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agents.snapshot((*models.Agent).Clone)
}

// ListTasks returns a copy of all tasks in insertion order.
func (s *Store) ListTasks() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.snapshot((*models.Task).Clone)
}

// Snapshot returns consistent copies of both collections.
func (s *Store) Snapshot() ([]*models.Agent, []*models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agents.snapshot((*models.Agent).Clone), s.tasks.snapshot((*models.Task).Clone)
}

// GetAgent returns a copy of one agent.
func (s *Store) GetAgent(id string) (*models.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents.get(id)
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// GetTask returns a copy of one task.
func (s *Store) GetTask(id string) (*models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks.get(id)
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// TasksForAgent returns copies of the agent's tasks in insertion order.
func (s *Store) TasksForAgent(agentID string) []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Task
	for _, t := range s.tasks.items {
		if t.AgentID == agentID {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (s *Store) publish(ctx context.Context, pending []*models.Event) {
	if len(pending) == 0 || s.publisher == nil {
		return
	}
	for _, ev := range pending {
		s.publisher.Publish(ctx, ev)
	}
	s.publisher.Publish(ctx, &models.Event{
		ID:         uuid.New().String(),
		Timestamp:  pending[len(pending)-1].Timestamp,
		Type:       models.EventTypeStoreCommitted,
		EntityType: models.EntityTypeStore,
		Changes:    len(pending),
	})
}

// Tx is the view of the store inside one logical operation. It must not be
// retained after the Update callback returns.
type Tx struct {
	store  *Store
	now    time.Time
	events []*models.Event
}

// Now is the timestamp shared by every change in the operation.
func (tx *Tx) Now() time.Time {
	return tx.now
}

// Agent returns a copy of an agent.
func (tx *Tx) Agent(id string) (*models.Agent, bool) {
	a, ok := tx.store.agents.get(id)
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Task returns a copy of a task.
func (tx *Tx) Task(id string) (*models.Task, bool) {
	t, ok := tx.store.tasks.get(id)
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// EachAgent calls fn with every agent in order. fn mutates the record in
// place and returns true when it changed it.
func (tx *Tx) EachAgent(fn func(a *models.Agent) bool) int {
	changed := 0
	for _, a := range tx.store.agents.items {
		if fn(a) {
			changed++
			tx.record(models.EventTypeAgentUpdated, models.EntityTypeAgent, a.ID)
		}
	}
	return changed
}

// MutateAgent applies fn to one agent in place. It reports whether the agent exists.
func (tx *Tx) MutateAgent(id string, fn func(a *models.Agent)) bool {
	a, ok := tx.store.agents.get(id)
	if !ok {
		return false
	}
	fn(a)
	tx.record(models.EventTypeAgentUpdated, models.EntityTypeAgent, id)
	return true
}

// MutateTask applies fn to one task in place. It reports whether the task exists.
func (tx *Tx) MutateTask(id string, fn func(t *models.Task)) bool {
	t, ok := tx.store.tasks.get(id)
	if !ok {
		return false
	}
	fn(t)
	tx.record(models.EventTypeTaskUpdated, models.EntityTypeTask, id)
	return true
}

// UpsertAgent inserts or merges an agent inside the operation.
func (tx *Tx) UpsertAgent(patch models.AgentPatch) (*models.Agent, error) {
	s := tx.store
	id := strings.TrimSpace(patch.ID)

	if existing, ok := s.agents.get(id); ok && id != "" {
		merged := existing.Clone()
		patch.Apply(merged)
		merged.LastUpdated = tx.now
		if err := merged.Validate(); err != nil {
			return nil, fmt.Errorf("invalid agent: %w", err)
		}
		*existing = *merged
		tx.record(models.EventTypeAgentUpdated, models.EntityTypeAgent, id)
		return existing, nil
	}

	if id == "" {
		id = s.newID()
	}
	agent := &models.Agent{
		ID:           id,
		Status:       models.AgentStatusOnline,
		RouteHistory: []models.Location{},
		LastUpdated:  tx.now,
	}
	patch.Apply(agent)
	if err := agent.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent: %w", err)
	}
	s.agents.add(id, agent)
	tx.record(models.EventTypeAgentCreated, models.EntityTypeAgent, id)
	return agent, nil
}

// DeleteAgent removes an agent and cascades to its tasks.
func (tx *Tx) DeleteAgent(id string) bool {
	s := tx.store
	if !s.agents.remove(id) {
		return false
	}
	tx.record(models.EventTypeAgentDeleted, models.EntityTypeAgent, id)

	var orphaned []string
	for _, t := range s.tasks.items {
		if t.AgentID == id {
			orphaned = append(orphaned, t.ID)
		}
	}
	for _, taskID := range orphaned {
		s.tasks.remove(taskID)
		tx.record(models.EventTypeTaskDeleted, models.EntityTypeTask, taskID)
	}
	if len(orphaned) > 0 {
		s.logger.Debug().Str("agent_id", id).Int("tasks", len(orphaned)).Msg("cascade deleted tasks")
	}
	return true
}

// UpsertTask inserts or merges a task inside the operation.
func (tx *Tx) UpsertTask(patch models.TaskPatch) (*models.Task, error) {
	s := tx.store
	id := strings.TrimSpace(patch.ID)

	if existing, ok := s.tasks.get(id); ok && id != "" {
		merged := existing.Clone()
		patch.Apply(merged)
		if err := tx.validateTask(merged); err != nil {
			return nil, err
		}
		*existing = *merged
		tx.record(models.EventTypeTaskUpdated, models.EntityTypeTask, id)
		return existing, nil
	}

	if id == "" {
		id = s.newID()
	}
	task := &models.Task{ID: id, Status: models.TaskStatusPending}
	patch.Apply(task)
	if err := tx.validateTask(task); err != nil {
		return nil, err
	}
	s.tasks.add(id, task)
	tx.record(models.EventTypeTaskCreated, models.EntityTypeTask, id)
	return task, nil
}

// DeleteTask removes a task.
func (tx *Tx) DeleteTask(id string) bool {
	if !tx.store.tasks.remove(id) {
		return false
	}
	tx.record(models.EventTypeTaskDeleted, models.EntityTypeTask, id)
	return true
}

func (tx *Tx) validateTask(t *models.Task) error {
	validation := &models.ValidationErrors{}
	validation.Add("", t.Validate())
	if strings.TrimSpace(t.AgentID) != "" && !tx.store.agents.has(t.AgentID) {
		validation.Add("agentId", models.ErrUnknownAgent)
	}
	if err := validation.Err(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	return nil
}

func (tx *Tx) record(typ models.EventType, entity models.EntityType, id string) {
	tx.events = append(tx.events, &models.Event{
		ID:         uuid.New().String(),
		Timestamp:  tx.now,
		Type:       typ,
		EntityType: entity,
		EntityID:   id,
	})
}
