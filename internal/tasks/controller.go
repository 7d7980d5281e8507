// Package tasks implements the task lifecycle: creation, check-in, completion
// with photo proof, edits and deletion.
package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/store"
)

// Config controls where tasks without coordinates are placed.
type Config struct {
	// ReferencePoint is the centre of generated task locations.
	ReferencePoint models.Coordinates

	// Spread is the full width, in degrees, of the jitter window.
	// Default: 0.05
	Spread float64
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		ReferencePoint: models.TaskReferencePoint,
		Spread:         0.05,
	}
}

// Observer is notified after every committed transition.
type Observer interface {
	ObserveTransition(to models.TaskStatus)
}

// Option configures a Controller.
type Option func(*Controller)

// WithRand sets the source of uniform values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(c *Controller) {
		c.rand = fn
	}
}

// WithProofRecorder replaces the default DigestRecorder.
func WithProofRecorder(r ProofRecorder) Option {
	return func(c *Controller) {
		c.proofs = r
	}
}

// WithObserver reports transitions.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// Controller drives tasks through PENDING -> IN_PROGRESS -> COMPLETED.
type Controller struct {
	store    *store.Store
	config   Config
	rand     func() float64
	proofs   ProofRecorder
	observer Observer
	logger   zerolog.Logger
}

// NewController creates a Controller over st.
func NewController(st *store.Store, config Config, opts ...Option) *Controller {
	if config.Spread <= 0 {
		config.Spread = DefaultConfig().Spread
	}
	if config.ReferencePoint == (models.Coordinates{}) {
		config.ReferencePoint = DefaultConfig().ReferencePoint
	}
	c := &Controller{
		store:  st,
		config: config,
		rand:   rand.Float64,
		proofs: DigestRecorder{},
		logger: logging.Component("tasks"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transitions returns the allowed status changes.
func Transitions() map[models.TaskStatus][]models.TaskStatus {
	return map[models.TaskStatus][]models.TaskStatus{
		models.TaskStatusPending:    {models.TaskStatusInProgress},
		models.TaskStatusInProgress: {models.TaskStatusCompleted},
	}
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to models.TaskStatus) bool {
	for _, next := range Transitions()[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateTaskInput holds the fields of a new task.
type CreateTaskInput struct {
	Title       string
	AgentID     string
	Description string
	Address     string
	// Location is optional; a jittered point near the reference is used when nil.
	Location *models.Coordinates
}

// CreateTask adds a PENDING task assigned to an existing agent.
func (c *Controller) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	validation := &models.ValidationErrors{}
	validation.Require("title", input.Title, models.ErrTaskTitleRequired)
	validation.Require("agentId", input.AgentID, models.ErrTaskAgentRequired)
	validation.Require("description", input.Description, models.ErrTaskDescRequired)
	validation.Require("address", input.Address, models.ErrTaskAddressRequired)
	if input.Location != nil {
		validation.Range("location.lat", input.Location.Lat, -90, 90)
		validation.Range("location.lng", input.Location.Lng, -180, 180)
	}
	if err := validation.Err(); err != nil {
		return nil, err
	}

	coords := c.jitter()
	if input.Location != nil {
		coords = *input.Location
	}
	status := models.TaskStatusPending
	task, err := c.store.UpsertTask(ctx, models.TaskPatch{
		AgentID:     &input.AgentID,
		Title:       &input.Title,
		Description: &input.Description,
		Status:      &status,
		Location: &models.TaskLocation{
			Lat:     coords.Lat,
			Lng:     coords.Lng,
			Address: input.Address,
		},
	})
	if err != nil {
		return nil, err
	}

	logger := logging.WithTask(c.logger, task.ID)
	logger.Info().Str("agent_id", task.AgentID).Msg("task created")
	return task, nil
}

func (c *Controller) jitter() models.Coordinates {
	ref := c.config.ReferencePoint
	return models.Coordinates{
		Lat: ref.Lat + (c.rand()-0.5)*c.config.Spread,
		Lng: ref.Lng + (c.rand()-0.5)*c.config.Spread,
	}
}

// StartTask checks the agent in: PENDING -> IN_PROGRESS.
func (c *Controller) StartTask(ctx context.Context, id string) (*models.Task, error) {
	return c.transition(ctx, id, "start", models.TaskStatusInProgress, func(t *models.Task, now time.Time) {
		t.CheckInTime = &now
	})
}

// CompleteTaskWithProof checks the agent out: IN_PROGRESS -> COMPLETED, with
// the proof reference attached.
func (c *Controller) CompleteTaskWithProof(ctx context.Context, id string, proof Proof) (*models.Task, error) {
	current, ok := c.store.GetTask(id)
	if !ok {
		return nil, &models.TransitionError{TaskID: id, Action: "complete", Missing: true}
	}
	if !CanTransition(current.Status, models.TaskStatusCompleted) {
		return nil, &models.TransitionError{TaskID: id, From: current.Status, Action: "complete"}
	}
	if len(proof.Data) == 0 {
		validation := &models.ValidationErrors{}
		validation.Add("proof", models.ErrProofRequired)
		return nil, validation.Err()
	}

	ref, err := c.proofs.RecordProof(ctx, id, proof)
	if err != nil {
		return nil, fmt.Errorf("record proof for task %s: %w", id, err)
	}

	return c.transition(ctx, id, "complete", models.TaskStatusCompleted, func(t *models.Task, now time.Time) {
		t.CheckOutTime = &now
		t.ProofImageURL = ref
	})
}

// transition moves a task to `to` when the state machine allows it. The
// status is re-checked inside the store operation.
func (c *Controller) transition(ctx context.Context, id, action string, to models.TaskStatus, apply func(*models.Task, time.Time)) (*models.Task, error) {
	var out *models.Task
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		current, ok := tx.Task(id)
		if !ok {
			return &models.TransitionError{TaskID: id, Action: action, Missing: true}
		}
		if !CanTransition(current.Status, to) {
			return &models.TransitionError{TaskID: id, From: current.Status, Action: action}
		}
		tx.MutateTask(id, func(t *models.Task) {
			t.Status = to
			apply(t, tx.Now())
			out = t.Clone()
		})
		return nil
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("task_id", id).Msg("transition rejected")
		return nil, err
	}

	if c.observer != nil {
		c.observer.ObserveTransition(to)
	}
	logger := logging.WithTask(c.logger, id)
	logger.Info().Str("status", string(to)).Msg("task transitioned")
	return out, nil
}

// TaskEdit holds the editable fields. Nil fields are left untouched.
type TaskEdit struct {
	Title       *string
	Description *string
	AgentID     *string
	Address     *string
}

// EditTask merges edit onto the task. Status and timestamps are never
// touched. An unknown id is a no-op and returns (nil, nil).
func (c *Controller) EditTask(ctx context.Context, id string, edit TaskEdit) (*models.Task, error) {
	validation := &models.ValidationErrors{}
	if edit.Title != nil {
		validation.Require("title", *edit.Title, models.ErrTaskTitleRequired)
	}
	if edit.Description != nil {
		validation.Require("description", *edit.Description, models.ErrTaskDescRequired)
	}
	if edit.AgentID != nil {
		validation.Require("agentId", *edit.AgentID, models.ErrTaskAgentRequired)
	}
	if edit.Address != nil {
		validation.Require("address", *edit.Address, models.ErrTaskAddressRequired)
	}
	if err := validation.Err(); err != nil {
		return nil, err
	}

	var out *models.Task
	err := c.store.Update(ctx, func(tx *store.Tx) error {
		if _, ok := tx.Task(id); !ok {
			return nil
		}
		task, err := tx.UpsertTask(models.TaskPatch{
			ID:          id,
			Title:       edit.Title,
			Description: edit.Description,
			AgentID:     edit.AgentID,
			Address:     edit.Address,
		})
		if err != nil {
			return err
		}
		out = task.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		c.logger.Debug().Str("task_id", id).Msg("edit ignored, task not found")
	}
	return out, nil
}

// DeleteTask removes a task. It reports whether the task existed.
func (c *Controller) DeleteTask(ctx context.Context, id string) bool {
	removed := c.store.DeleteTask(ctx, id)
	if removed {
		logger := logging.WithTask(c.logger, id)
		logger.Info().Msg("task deleted")
	}
	return removed
}

// ListTasks returns all tasks, optionally filtered by agent.
func (c *Controller) ListTasks(agentID string) []*models.Task {
	if agentID == "" {
		return c.store.ListTasks()
	}
	return c.store.TasksForAgent(agentID)
}
