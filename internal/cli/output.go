package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/tOgg1/geoforce/internal/mapview"
	"github.com/tOgg1/geoforce/internal/models"
	"golang.org/x/term"
)

const tablePadding = 2

// WriteJSON writes v as indented JSON.
func WriteJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// colorEnabled is true when stdout is a terminal and colour is not disabled.
func colorEnabled(out io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func colorize(out io.Writer, color, value string) string {
	if !colorEnabled(out) {
		return value
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(value)
}

func agentStatusCell(out io.Writer, status models.AgentStatus) string {
	return colorize(out, mapview.StatusColor(status), string(status))
}

func taskStatusCell(out io.Writer, status models.TaskStatus) string {
	color := "#94a3b8"
	switch status {
	case models.TaskStatusPending:
		color = mapview.ColorTask
	case models.TaskStatusInProgress:
		color = mapview.ColorOnDuty
	case models.TaskStatusCompleted:
		color = mapview.ColorOnline
	case models.TaskStatusFailed:
		color = "#ef4444"
	}
	return colorize(out, color, string(status))
}

func formatCoords(loc *models.Location) string {
	if loc == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f,%.4f", loc.Lat, loc.Lng)
}

func writeTable(out io.Writer, headers []string, rows [][]string) error {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	measure := func(row []string) {
		for idx, cell := range row {
			widths[idx] = max(widths[idx], runewidth.StringWidth(stripANSI(cell)))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	writer := bufio.NewWriter(out)
	writeRow := func(row []string) {
		for idx := 0; idx < colCount; idx++ {
			cell := ""
			if idx < len(row) {
				cell = row[idx]
			}
			writer.WriteString(cell)
			if idx < colCount-1 {
				padding := max(0, widths[idx]-runewidth.StringWidth(stripANSI(cell)))
				writer.WriteString(strings.Repeat(" ", padding+tablePadding))
			}
		}
		writer.WriteString("\n")
	}

	if len(headers) > 0 {
		writeRow(headers)
	}
	for _, row := range rows {
		writeRow(row)
	}
	return writer.Flush()
}

func stripANSI(value string) string {
	if !strings.Contains(value, "\x1b[") {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != 0x1b || i+1 >= len(value) || value[i+1] != '[' {
			b.WriteByte(value[i])
			continue
		}
		i += 2
		for i < len(value) {
			ch := value[i]
			if ch >= 0x40 && ch <= 0x7e {
				break
			}
			i++
		}
	}
	return b.String()
}
