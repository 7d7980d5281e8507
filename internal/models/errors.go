package models

import (
	"errors"
	"fmt"
)

// Validation sentinels.
var (
	ErrAgentNameRequired   = errors.New("agent name is required")
	ErrInvalidAgentStatus  = errors.New("invalid agent status")
	ErrTaskTitleRequired   = errors.New("task title is required")
	ErrTaskAgentRequired   = errors.New("task agent is required")
	ErrTaskDescRequired    = errors.New("task description is required")
	ErrTaskAddressRequired = errors.New("task address is required")
	ErrUnknownAgent        = errors.New("agent does not exist")
	ErrProofRequired       = errors.New("proof payload is required")
	ErrInvalidRole         = errors.New("invalid role")
)

// Lookup and lifecycle sentinels.
var (
	ErrNotFound          = errors.New("not found")
	ErrAgentNotFound     = fmt.Errorf("agent %w", ErrNotFound)
	ErrTaskNotFound      = fmt.Errorf("task %w", ErrNotFound)
	ErrInvalidTransition = errors.New("invalid task transition")
	ErrResourceAccess    = errors.New("resource access failed")
	ErrCaptureCancelled  = errors.New("proof capture cancelled")
	ErrPersistence       = errors.New("persistence failure")
)

// TransitionError reports a task state machine violation.
type TransitionError struct {
	TaskID string
	From   TaskStatus
	Action string
	// Missing is set when the task does not exist.
	Missing bool
}

func (e *TransitionError) Error() string {
	if e.Missing {
		return fmt.Sprintf("cannot %s task %s: task not found", e.Action, e.TaskID)
	}
	return fmt.Sprintf("cannot %s task %s from status %s", e.Action, e.TaskID, e.From)
}

// Is matches ErrInvalidTransition, and ErrTaskNotFound for missing tasks.
func (e *TransitionError) Is(target error) bool {
	if target == ErrInvalidTransition {
		return true
	}
	if e.Missing && (target == ErrTaskNotFound || target == ErrNotFound) {
		return true
	}
	return false
}

// ResourceError reports a denied or unavailable device resource.
type ResourceError struct {
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable", e.Resource)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

func (e *ResourceError) Is(target error) bool { return target == ErrResourceAccess }

// PersistenceError reports a durable store read or write failure.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
