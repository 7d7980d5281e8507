package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tOgg1/geoforce/internal/models"
	"gopkg.in/yaml.v3"
)

// Snapshot is both collections at one point in time.
type Snapshot struct {
	Agents []*models.Agent `json:"agents" yaml:"agents"`
	Tasks  []*models.Task  `json:"tasks" yaml:"tasks"`
}

// EncodeJSON renders the snapshot as indented JSON.
func (s Snapshot) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// EncodeYAML renders the snapshot as YAML.
func (s Snapshot) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// LoadSeedFile reads a YAML (or JSON, which YAML accepts) snapshot used in
// place of the built-in seed. Agents without a status default to ONLINE and
// missing timestamps default to now.
func LoadSeedFile(path string, now time.Time) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	now = now.UTC()
	validation := &models.ValidationErrors{}
	for i, a := range snap.Agents {
		if a == nil {
			continue
		}
		if a.Status == "" {
			a.Status = models.AgentStatusOnline
		}
		if a.LastUpdated.IsZero() {
			a.LastUpdated = now
		}
		if a.LastLocation != nil && a.LastLocation.Timestamp.IsZero() {
			a.LastLocation.Timestamp = now
		}
		if a.RouteHistory == nil {
			a.RouteHistory = []models.Location{}
		}
		validation.Add(fmt.Sprintf("agents[%d]", i), a.Validate())
	}
	for i, t := range snap.Tasks {
		if t == nil {
			continue
		}
		if t.Status == "" {
			t.Status = models.TaskStatusPending
		}
		validation.Add(fmt.Sprintf("tasks[%d]", i), t.Validate())
	}
	if err := validation.Err(); err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %w", path, err)
	}
	return &snap, nil
}
