// Package mapview keeps the marker set for the live map and renders it as
// terminal text.
package mapview

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/tOgg1/geoforce/internal/models"
)

// Marker colours.
const (
	ColorOnline  = "#10b981"
	ColorOnDuty  = "#3b82f6"
	ColorOffline = "#94a3b8"
	ColorTask    = "#f59e0b"
)

// MarkerKind distinguishes agent and task markers.
type MarkerKind string

const (
	MarkerAgent MarkerKind = "agent"
	MarkerTask  MarkerKind = "task"
)

// TaskMarkerID is the marker key for a task.
func TaskMarkerID(taskID string) string {
	return "task-" + taskID
}

// StatusColor returns the marker colour for an agent status.
func StatusColor(status models.AgentStatus) string {
	switch status {
	case models.AgentStatusOnline:
		return ColorOnline
	case models.AgentStatusOnDuty:
		return ColorOnDuty
	default:
		return ColorOffline
	}
}

// Marker is one pin on the map.
type Marker struct {
	ID    string
	Kind  MarkerKind
	Label string
	Lat   float64
	Lng   float64
	Color string
}

// Board is the keyed marker set. An id is placed at most once; later syncs
// move it.
type Board struct {
	mu      sync.Mutex
	order   []string
	markers map[string]*Marker
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{markers: make(map[string]*Marker)}
}

// Sync places or moves a marker for every located agent and every task, and
// removes markers whose agent or task is gone.
func (b *Board) Sync(agents []*models.Agent, tasks []*models.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]struct{}, len(agents)+len(tasks))
	for _, a := range agents {
		if a == nil || a.LastLocation == nil {
			continue
		}
		seen[a.ID] = struct{}{}
		b.place(Marker{
			ID:    a.ID,
			Kind:  MarkerAgent,
			Label: a.Name,
			Lat:   a.LastLocation.Lat,
			Lng:   a.LastLocation.Lng,
			Color: StatusColor(a.Status),
		})
	}
	for _, t := range tasks {
		if t == nil {
			continue
		}
		id := TaskMarkerID(t.ID)
		seen[id] = struct{}{}
		b.place(Marker{
			ID:    id,
			Kind:  MarkerTask,
			Label: t.Title,
			Lat:   t.Location.Lat,
			Lng:   t.Location.Lng,
			Color: ColorTask,
		})
	}

	kept := b.order[:0]
	for _, id := range b.order {
		if _, ok := seen[id]; ok {
			kept = append(kept, id)
			continue
		}
		delete(b.markers, id)
	}
	b.order = kept
}

func (b *Board) place(m Marker) {
	if existing, ok := b.markers[m.ID]; ok {
		*existing = m
		return
	}
	b.markers[m.ID] = &m
	b.order = append(b.order, m.ID)
}

// Markers returns the markers in placement order.
func (b *Board) Markers() []Marker {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Marker, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.markers[id])
	}
	return out
}

// Marker returns one marker by id.
func (b *Board) Marker(id string) (Marker, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.markers[id]
	if !ok {
		return Marker{}, false
	}
	return *m, true
}

// Render draws the markers on a width x height character grid followed by
// a legend.
func (b *Board) Render(width, height int) string {
	if width < 10 {
		width = 10
	}
	if height < 4 {
		height = 4
	}
	markers := b.Markers()
	if len(markers) == 0 {
		return lipgloss.NewStyle().Faint(true).Render("no markers")
	}

	minLat, maxLat, minLng, maxLng := bounds(markers)
	empty := lipgloss.NewStyle().Foreground(lipgloss.Color("#334155")).Render("·")
	grid := make([][]string, height)
	for y := range grid {
		grid[y] = make([]string, width)
		for x := range grid[y] {
			grid[y][x] = empty
		}
	}
	for _, m := range markers {
		x := scale(m.Lng, minLng, maxLng, width)
		y := height - 1 - scale(m.Lat, minLat, maxLat, height)
		grid[y][x] = glyphStyle(m).Render(glyph(m))
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(strings.Join(row, ""))
		sb.WriteByte('\n')
	}
	for _, m := range markers {
		sb.WriteString(fmt.Sprintf("%s %-28s %9.4f %9.4f\n", glyphStyle(m).Render(glyph(m)), truncate(m.Label, 28), m.Lat, m.Lng))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func glyph(m Marker) string {
	if m.Kind == MarkerTask {
		return "◆"
	}
	return "●"
}

func glyphStyle(m Marker) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(m.Color)).Bold(true)
}

func bounds(markers []Marker) (minLat, maxLat, minLng, maxLng float64) {
	minLat, minLng = math.Inf(1), math.Inf(1)
	maxLat, maxLng = math.Inf(-1), math.Inf(-1)
	for _, m := range markers {
		minLat = math.Min(minLat, m.Lat)
		maxLat = math.Max(maxLat, m.Lat)
		minLng = math.Min(minLng, m.Lng)
		maxLng = math.Max(maxLng, m.Lng)
	}
	return minLat, maxLat, minLng, maxLng
}

func scale(v, lo, hi float64, cells int) int {
	if hi-lo < 1e-9 {
		return cells / 2
	}
	pos := int(math.Round((v - lo) / (hi - lo) * float64(cells-1)))
	return max(0, min(cells-1, pos))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
