package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tOgg1/geoforce/internal/app"
	"github.com/tOgg1/geoforce/internal/db"
	"github.com/tOgg1/geoforce/internal/models"
)

var (
	eventsLimit  int
	eventsEntity string
	eventsID     string
	eventsSince  time.Duration
	eventsCursor string
)

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "maximum number of events to show")
	eventsCmd.Flags().StringVar(&eventsEntity, "entity", "", "filter by entity type (agent, task)")
	eventsCmd.Flags().StringVar(&eventsID, "id", "", "filter by entity ID")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 0, "only show events newer than this (e.g. 1h)")
	eventsCmd.Flags().StringVar(&eventsCursor, "cursor", "", "continue from a previous page")
}

// EventList is the payload of `geoforce events --json`.
type EventList struct {
	Events     []*models.Event `json:"events"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the agent and task activity log",
	Long: `Show recorded lifecycle events, oldest first.

Without filters the most recent events are listed. With --entity, --id,
--since or --cursor the log is paged from the oldest matching event and
the next cursor is printed when more remain.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventsLimit < 1 {
			return fmt.Errorf("--limit must be at least 1")
		}
		var entity *models.EntityType
		switch eventsEntity {
		case "":
		case string(models.EntityTypeAgent), string(models.EntityTypeTask):
			e := models.EntityType(eventsEntity)
			entity = &e
		default:
			return fmt.Errorf("unknown entity %q (agent, task)", eventsEntity)
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			list, err := queryEvents(ctx, a.Activity, entity)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if IsJSONOutput() {
				return WriteJSON(out, list)
			}
			if len(list.Events) == 0 {
				fmt.Fprintln(out, "No events recorded")
				return nil
			}

			rows := make([][]string, 0, len(list.Events))
			for _, ev := range list.Events {
				rows = append(rows, []string{
					ev.Timestamp.Local().Format("2006-01-02 15:04:05"),
					string(ev.Type),
					ev.EntityID,
				})
			}
			if err := writeTable(out, []string{"TIME", "EVENT", "ENTITY"}, rows); err != nil {
				return err
			}
			if list.NextCursor != "" {
				fmt.Fprintf(out, "\nMore events: --cursor %s\n", list.NextCursor)
			}
			return nil
		})
	},
}

func queryEvents(ctx context.Context, repo *db.EventRepository, entity *models.EntityType) (*EventList, error) {
	filtered := entity != nil || eventsID != "" || eventsSince > 0 || eventsCursor != ""
	if !filtered {
		recent, err := repo.Recent(ctx, eventsLimit)
		if err != nil {
			return nil, err
		}
		return &EventList{Events: recent}, nil
	}

	q := db.EventQuery{EntityType: entity, Cursor: eventsCursor, Limit: eventsLimit}
	if eventsID != "" {
		q.EntityID = &eventsID
	}
	if eventsSince > 0 {
		since := time.Now().Add(-eventsSince)
		q.Since = &since
	}
	page, err := repo.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return &EventList{Events: page.Events, NextCursor: page.NextCursor}, nil
}
