package models

import (
	"fmt"
	"strings"
	"time"
)

// AgentStatus is the duty status of a field agent.
type AgentStatus string

const (
	AgentStatusOnline  AgentStatus = "ONLINE"
	AgentStatusOffline AgentStatus = "OFFLINE"
	AgentStatusOnDuty  AgentStatus = "ON_DUTY"
)

// DefaultRouteHistoryLimit bounds Agent.RouteHistory.
const DefaultRouteHistoryLimit = 50

// Valid reports whether s is a known agent status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusOnline, AgentStatusOffline, AgentStatusOnDuty:
		return true
	default:
		return false
	}
}

// ParseAgentStatus accepts the canonical names plus lowercase and dashed forms.
func ParseAgentStatus(value string) (AgentStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	status := AgentStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAgentStatus, value)
	}
	return status, nil
}

// Location is a timestamped position fix.
type Location struct {
	Lat       float64   `json:"lat" yaml:"lat"`
	Lng       float64   `json:"lng" yaml:"lng"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Agent is a field worker tracked by position and duty status.
type Agent struct {
	// ID is stable and never reused.
	ID string `json:"id" yaml:"id"`

	// Name is the display name.
	Name string `json:"name" yaml:"name"`

	// Status controls whether telemetry applies to the agent.
	Status AgentStatus `json:"status" yaml:"status"`

	// LastLocation is the most recent known position.
	LastLocation *Location `json:"lastLocation,omitempty" yaml:"lastLocation,omitempty"`

	// RouteHistory holds past locations, oldest first.
	RouteHistory []Location `json:"routeHistory" yaml:"routeHistory"`

	// BatteryLevel is advisory, 0-100.
	BatteryLevel int `json:"batteryLevel" yaml:"batteryLevel"`

	// LastUpdated is the time of the last mutation.
	LastUpdated time.Time `json:"lastUpdated" yaml:"lastUpdated"`
}

// Validate checks the agent's required fields.
func (a *Agent) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(a.ID) == "" {
		validation.AddMessage("id", "id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		validation.Add("name", ErrAgentNameRequired)
	}
	if !a.Status.Valid() {
		validation.Add("status", ErrInvalidAgentStatus)
	}
	if a.BatteryLevel < 0 || a.BatteryLevel > 100 {
		validation.AddMessage("batteryLevel", "battery level must be between 0 and 100")
	}
	return validation.Err()
}

// Clone returns a deep copy.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	out := *a
	if a.LastLocation != nil {
		loc := *a.LastLocation
		out.LastLocation = &loc
	}
	out.RouteHistory = make([]Location, len(a.RouteHistory))
	copy(out.RouteHistory, a.RouteHistory)
	return &out
}

// AppendLocation records loc as the newest position, keeping at most limit
// history entries. LastLocation always equals the last history entry afterwards.
func (a *Agent) AppendLocation(loc Location, limit int) {
	if limit <= 0 {
		limit = DefaultRouteHistoryLimit
	}
	history := append(a.RouteHistory, loc)
	if len(history) > limit {
		trimmed := make([]Location, limit)
		copy(trimmed, history[len(history)-limit:])
		history = trimmed
	}
	a.RouteHistory = history
	last := loc
	a.LastLocation = &last
	a.LastUpdated = loc.Timestamp
}

// AgentPatch is a partial agent update. Nil fields are left untouched.
type AgentPatch struct {
	ID           string
	Name         *string
	Status       *AgentStatus
	LastLocation *Location
	BatteryLevel *int
}

// Apply merges the patch onto a. It does not touch RouteHistory.
func (p AgentPatch) Apply(a *Agent) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.LastLocation != nil {
		loc := *p.LastLocation
		a.LastLocation = &loc
	}
	if p.BatteryLevel != nil {
		a.BatteryLevel = *p.BatteryLevel
	}
}
