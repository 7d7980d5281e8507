// Package report derives summary figures from agents and tasks.
package report

import (
	"math"

	"github.com/tOgg1/geoforce/internal/models"
)

const earthRadiusKm = 6371.0

// Summary counts tasks by status.
type Summary struct {
	Agents         int `json:"agents" yaml:"agents"`
	AgentsOnDuty   int `json:"agentsOnDuty" yaml:"agentsOnDuty"`
	AgentsOffline  int `json:"agentsOffline" yaml:"agentsOffline"`
	Tasks          int `json:"tasks" yaml:"tasks"`
	Pending        int `json:"pending" yaml:"pending"`
	InProgress     int `json:"inProgress" yaml:"inProgress"`
	Completed      int `json:"completed" yaml:"completed"`
	Failed         int `json:"failed" yaml:"failed"`
	CompletionRate int `json:"completionRate" yaml:"completionRate"`
}

// Summarize counts agents and tasks. CompletionRate is the rounded percentage
// of completed tasks, 0 when there are none.
func Summarize(agents []*models.Agent, tasks []*models.Task) Summary {
	s := Summary{Agents: len(agents), Tasks: len(tasks)}
	for _, a := range agents {
		switch a.Status {
		case models.AgentStatusOnDuty:
			s.AgentsOnDuty++
		case models.AgentStatusOffline:
			s.AgentsOffline++
		}
	}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusPending:
			s.Pending++
		case models.TaskStatusInProgress:
			s.InProgress++
		case models.TaskStatusCompleted:
			s.Completed++
		case models.TaskStatusFailed:
			s.Failed++
		}
	}
	if s.Tasks > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Tasks) * 100))
	}
	return s
}

// AgentStat is one agent's activity.
type AgentStat struct {
	AgentID        string             `json:"agentId" yaml:"agentId"`
	Name           string             `json:"name" yaml:"name"`
	Status         models.AgentStatus `json:"status" yaml:"status"`
	BatteryLevel   int                `json:"batteryLevel" yaml:"batteryLevel"`
	TasksAssigned  int                `json:"tasksAssigned" yaml:"tasksAssigned"`
	TasksCompleted int                `json:"tasksCompleted" yaml:"tasksCompleted"`
	DistanceKm     float64            `json:"distanceKm" yaml:"distanceKm"`
}

// AgentStats returns per-agent figures in roster order.
func AgentStats(agents []*models.Agent, tasks []*models.Task) []AgentStat {
	assigned := make(map[string]int)
	completed := make(map[string]int)
	for _, t := range tasks {
		assigned[t.AgentID]++
		if t.Status == models.TaskStatusCompleted {
			completed[t.AgentID]++
		}
	}

	out := make([]AgentStat, 0, len(agents))
	for _, a := range agents {
		out = append(out, AgentStat{
			AgentID:        a.ID,
			Name:           a.Name,
			Status:         a.Status,
			BatteryLevel:   a.BatteryLevel,
			TasksAssigned:  assigned[a.ID],
			TasksCompleted: completed[a.ID],
			DistanceKm:     RouteDistanceKm(a.RouteHistory),
		})
	}
	return out
}

// RouteDistanceKm sums great-circle distances between consecutive points.
func RouteDistanceKm(route []models.Location) float64 {
	total := 0.0
	for i := 1; i < len(route); i++ {
		total += HaversineKm(route[i-1].Lat, route[i-1].Lng, route[i].Lat, route[i].Lng)
	}
	return total
}

// HaversineKm is the great-circle distance between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
