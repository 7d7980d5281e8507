package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is a task's lifecycle state.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	// TaskStatusFailed is terminal. Nothing transitions into it yet.
	TaskStatusFailed TaskStatus = "FAILED"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition leaves s.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// ParseTaskStatus accepts the canonical names plus lowercase and dashed forms.
func ParseTaskStatus(value string) (TaskStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	status := TaskStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("invalid task status %q", value)
	}
	return status, nil
}

// Coordinates is a bare lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// TaskLocation is where a task takes place. Fixed at creation.
type TaskLocation struct {
	Lat     float64 `json:"lat" yaml:"lat"`
	Lng     float64 `json:"lng" yaml:"lng"`
	Address string  `json:"address" yaml:"address"`
}

// Task is a unit of assigned field work.
type Task struct {
	ID            string       `json:"id" yaml:"id"`
	AgentID       string       `json:"agentId" yaml:"agentId"`
	Title         string       `json:"title" yaml:"title"`
	Description   string       `json:"description" yaml:"description"`
	Status        TaskStatus   `json:"status" yaml:"status"`
	Location      TaskLocation `json:"location" yaml:"location"`
	CheckInTime   *time.Time   `json:"checkInTime,omitempty" yaml:"checkInTime,omitempty"`
	CheckOutTime  *time.Time   `json:"checkOutTime,omitempty" yaml:"checkOutTime,omitempty"`
	ProofImageURL string       `json:"proofImageUrl,omitempty" yaml:"proofImageUrl,omitempty"`
}

// Validate checks the task's required fields.
func (t *Task) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(t.ID) == "" {
		validation.AddMessage("id", "id is required")
	}
	if strings.TrimSpace(t.AgentID) == "" {
		validation.Add("agentId", ErrTaskAgentRequired)
	}
	if strings.TrimSpace(t.Title) == "" {
		validation.Add("title", ErrTaskTitleRequired)
	}
	if !t.Status.Valid() {
		validation.AddMessage("status", fmt.Sprintf("invalid task status %q", t.Status))
	}
	return validation.Err()
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	if t.CheckInTime != nil {
		ts := *t.CheckInTime
		out.CheckInTime = &ts
	}
	if t.CheckOutTime != nil {
		ts := *t.CheckOutTime
		out.CheckOutTime = &ts
	}
	return &out
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	ID            string
	AgentID       *string
	Title         *string
	Description   *string
	Status        *TaskStatus
	Location      *TaskLocation
	Address       *string
	CheckInTime   *time.Time
	CheckOutTime  *time.Time
	ProofImageURL *string
}

// Apply merges the patch onto t. Address is applied after Location.
func (p TaskPatch) Apply(t *Task) {
	if p.AgentID != nil {
		t.AgentID = *p.AgentID
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.Address != nil {
		t.Location.Address = *p.Address
	}
	if p.CheckInTime != nil {
		ts := *p.CheckInTime
		t.CheckInTime = &ts
	}
	if p.CheckOutTime != nil {
		ts := *p.CheckOutTime
		t.CheckOutTime = &ts
	}
	if p.ProofImageURL != nil {
		t.ProofImageURL = *p.ProofImageURL
	}
}
