// Package console is the agent-side workflow: duty toggling with live
// position tracking, task check-in, and photo proof capture.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/device"
	"github.com/tOgg1/geoforce/internal/fleet"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/tasks"
)

// Console errors.
var (
	ErrCaptureInProgress = errors.New("a proof capture is already open")
	ErrConsoleClosed     = errors.New("console is closed")
)

// Console is one signed-in agent's view. It holds at most one geolocation
// subscription and at most one camera stream; Close releases both.
type Console struct {
	profile models.Profile
	fleet   *fleet.Service
	tasks   *tasks.Controller
	geo     device.Geolocator
	camera  device.Camera
	logger  zerolog.Logger

	mu      sync.Mutex
	duty    device.Subscription
	capture *ProofCapture
	lastFix *models.Location
	lastErr error
	closed  bool
}

// New creates a console for profile. The agent record is created on demand
// by Register.
func New(profile models.Profile, fleetSvc *fleet.Service, ctrl *tasks.Controller, geo device.Geolocator, camera device.Camera) *Console {
	return &Console{
		profile: profile,
		fleet:   fleetSvc,
		tasks:   ctrl,
		geo:     geo,
		camera:  camera,
		logger:  logging.WithAgent(logging.Component("console"), profile.ID),
	}
}

// AgentID is the id of the agent this console drives.
func (c *Console) AgentID() string {
	return c.profile.ID
}

// Register creates the agent record when the roster does not have it.
func (c *Console) Register(ctx context.Context) (*models.Agent, error) {
	if agent, err := c.fleet.GetAgent(c.profile.ID); err == nil {
		return agent, nil
	}
	return c.fleet.CreateAgentWithID(ctx, c.profile.ID, c.profile.Name, models.AgentStatusOnline)
}

// OnDuty reports whether position tracking is active.
func (c *Console) OnDuty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duty != nil
}

// ToggleDuty starts or stops position tracking and returns the new state.
// Going on duty marks the agent ON_DUTY; going off marks it ONLINE. If the
// geolocator refuses access the console stays off duty. A closed console
// returns ErrConsoleClosed.
func (c *Console) ToggleDuty(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrConsoleClosed
	}
	sub := c.duty
	c.duty = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
		if _, err := c.fleet.SetStatus(ctx, c.profile.ID, models.AgentStatusOnline); err != nil {
			return false, err
		}
		c.logger.Info().Msg("off duty")
		return false, nil
	}

	if _, err := c.Register(ctx); err != nil {
		return false, err
	}
	sub, err := c.geo.Subscribe(c.onFix, c.onGeoError)
	if err != nil {
		c.logger.Warn().Err(err).Msg("geolocation unavailable")
		return false, err
	}

	c.mu.Lock()
	if c.closed {
		// Closed while the geolocator was starting.
		c.mu.Unlock()
		sub.Cancel()
		return false, ErrConsoleClosed
	}
	if c.duty != nil {
		// A concurrent toggle won; keep exactly one subscription.
		c.mu.Unlock()
		sub.Cancel()
		return true, nil
	}
	c.duty = sub
	c.mu.Unlock()

	if _, err := c.fleet.SetStatus(ctx, c.profile.ID, models.AgentStatusOnDuty); err != nil {
		return true, err
	}
	c.logger.Info().Msg("on duty")
	return true, nil
}

func (c *Console) onFix(fix models.Location) {
	c.mu.Lock()
	last := fix
	c.lastFix = &last
	c.mu.Unlock()

	if err := c.fleet.RecordFix(context.Background(), c.profile.ID, fix); err != nil {
		c.logger.Warn().Err(err).Msg("failed to record position")
	}
}

func (c *Console) onGeoError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.logger.Warn().Err(err).Msg("geolocation error")
}

// LastFix returns the most recent position received while on duty.
func (c *Console) LastFix() *models.Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastFix == nil {
		return nil
	}
	fix := *c.lastFix
	return &fix
}

// LastError returns the most recent asynchronous geolocation error.
func (c *Console) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ActiveTasks returns this agent's tasks that are not completed.
func (c *Console) ActiveTasks() []*models.Task {
	var out []*models.Task
	for _, t := range c.tasks.ListTasks(c.profile.ID) {
		if t.Status != models.TaskStatusCompleted {
			out = append(out, t)
		}
	}
	return out
}

// CompletedTasks returns this agent's completed tasks.
func (c *Console) CompletedTasks() []*models.Task {
	var out []*models.Task
	for _, t := range c.tasks.ListTasks(c.profile.ID) {
		if t.Status == models.TaskStatusCompleted {
			out = append(out, t)
		}
	}
	return out
}

// StartVisit checks in to one of this agent's tasks.
func (c *Console) StartVisit(ctx context.Context, taskID string) (*models.Task, error) {
	if err := c.ownsTask(taskID); err != nil {
		return nil, err
	}
	return c.tasks.StartTask(ctx, taskID)
}

func (c *Console) ownsTask(taskID string) error {
	for _, t := range c.tasks.ListTasks(c.profile.ID) {
		if t.ID == taskID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", models.ErrTaskNotFound, taskID)
}

// OpenProofCapture opens the camera for completing taskID. The task must be
// IN_PROGRESS. Only one capture can be open at a time.
func (c *Console) OpenProofCapture(ctx context.Context, taskID string) (*ProofCapture, error) {
	if err := c.ownsTask(taskID); err != nil {
		return nil, err
	}
	for _, t := range c.tasks.ListTasks(c.profile.ID) {
		if t.ID == taskID && !tasks.CanTransition(t.Status, models.TaskStatusCompleted) {
			return nil, &models.TransitionError{TaskID: taskID, From: t.Status, Action: "complete"}
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConsoleClosed
	}
	if c.capture != nil {
		c.mu.Unlock()
		return nil, ErrCaptureInProgress
	}
	// Reserve the slot before the camera starts.
	capture := &ProofCapture{console: c, taskID: taskID}
	c.capture = capture
	c.mu.Unlock()

	stream, err := c.camera.Start(ctx)
	if err != nil {
		c.release(capture)
		c.logger.Warn().Err(err).Msg("camera unavailable")
		return nil, err
	}
	if !capture.attach(stream) {
		// Closed while the camera was starting.
		stream.Stop()
		return nil, models.ErrCaptureCancelled
	}
	return capture, nil
}

func (c *Console) release(capture *ProofCapture) {
	c.mu.Lock()
	if c.capture == capture {
		c.capture = nil
	}
	c.mu.Unlock()
}

// Close releases the geolocation subscription and any open camera stream.
// The agent status is left as is. Duty toggles and captures still starting
// when Close runs release what they acquired. Safe to call more than once.
func (c *Console) Close() {
	c.mu.Lock()
	c.closed = true
	sub := c.duty
	capture := c.capture
	c.duty = nil
	c.capture = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	if capture != nil {
		capture.Cancel()
	}
}

// ProofCapture is an open camera session for one task.
type ProofCapture struct {
	console *Console
	taskID  string

	mu     sync.Mutex
	stream device.Stream
	closed bool
}

// TaskID is the task being completed.
func (p *ProofCapture) TaskID() string {
	return p.taskID
}

func (p *ProofCapture) attach(stream device.Stream) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.stream = stream
	return true
}

// Capture takes a photo, completes the task with it and releases the camera.
// The camera is released even when completion fails.
func (p *ProofCapture) Capture(ctx context.Context) (*models.Task, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, models.ErrCaptureCancelled
	}
	stream := p.stream
	p.mu.Unlock()
	defer p.Cancel()

	frame, err := stream.Capture()
	if err != nil {
		return nil, err
	}
	return p.console.tasks.CompleteTaskWithProof(ctx, p.taskID, tasks.Proof{
		Data:        frame.Data,
		ContentType: frame.ContentType,
	})
}

// Cancel releases the camera without completing the task. Idempotent.
func (p *ProofCapture) Cancel() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	stream := p.stream
	p.stream = nil
	p.mu.Unlock()

	if stream != nil {
		stream.Stop()
	}
	p.console.release(p)
}
