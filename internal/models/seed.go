package models

import "time"

// Reference points used when no coordinates are supplied.
var (
	// AgentReferencePoint is where new agents are placed.
	AgentReferencePoint = Coordinates{Lat: 40.7128, Lng: -74.0060}
	// TaskReferencePoint is the centre new task locations are jittered around.
	TaskReferencePoint = Coordinates{Lat: 40.71, Lng: -74.00}
)

// SeedAgents returns the roster used when nothing has been persisted yet.
func SeedAgents(now time.Time) []*Agent {
	now = now.UTC()
	at := func(lat, lng float64) *Location {
		return &Location{Lat: lat, Lng: lng, Timestamp: now}
	}
	return []*Agent{
		{ID: "1", Name: "John Doe", Status: AgentStatusOnline, BatteryLevel: 82, LastUpdated: now, LastLocation: at(40.7128, -74.0060), RouteHistory: []Location{}},
		{ID: "2", Name: "Jane Smith", Status: AgentStatusOnDuty, BatteryLevel: 45, LastUpdated: now, LastLocation: at(40.7589, -73.9851), RouteHistory: []Location{}},
		{ID: "3", Name: "Mike Ross", Status: AgentStatusOffline, BatteryLevel: 12, LastUpdated: now, LastLocation: at(40.7306, -73.9352), RouteHistory: []Location{}},
	}
}

// SeedTasks returns the tasks used when nothing has been persisted yet.
func SeedTasks() []*Task {
	return []*Task{
		{
			ID: "t1", AgentID: "1",
			Title:       "Deliver Package #402",
			Description: "Priority delivery to downtown center",
			Status:      TaskStatusPending,
			Location:    TaskLocation{Lat: 40.71, Lng: -74.00, Address: "Wall St, NY"},
		},
		{
			ID: "t2", AgentID: "2",
			Title:       "Site Inspection",
			Description: "Inspect the construction at 42nd St",
			Status:      TaskStatusInProgress,
			Location:    TaskLocation{Lat: 40.75, Lng: -73.98, Address: "42nd St, NY"},
		},
	}
}
