package cli

import (
	"fmt"
	"io"
	"task_tracker/internal/models"
	"task_tracker/internal/repository"
	"task_tracker/internal/services"
	"time"

	"github.com/spf13/cobra"
)

var recurDate string

var recurCmd = &cobra.Command{
	Use:   "recur",
	Short: "Generate recurring task occurrences for one day",
	Long: `Runs the recurrence engine once, as the scheduler would, for the given
calendar day in the configured TIMEZONE (default: today). Running it twice for
the same day creates nothing new.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		loc := e.cfg.Location()
		day, err := parseDay(recurDate, loc, time.Now())
		if err != nil {
			return err
		}

		svc := services.NewRecurrenceService(repository.NewTaskRepository(e.db), loc, e.log)
		created, genErr := svc.Generate(cmd.Context(), day)
		printOccurrences(cmd.OutOrStdout(), day, created)
		return genErr
	},
}

func init() {
	recurCmd.Flags().StringVar(&recurDate, "date", "", "Day to generate for, YYYY-MM-DD")
}

// parseDay returns noon of the requested day in loc, or now when s is empty.
func parseDay(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "" {
		return now.In(loc), nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, want YYYY-MM-DD", s)
	}
	return d.Add(12 * time.Hour), nil
}

func printOccurrences(w io.Writer, day time.Time, tasks []models.Task) {
	fmt.Fprintf(w, "%d occurrence(s) created for %s\n", len(tasks), day.Format("2006-01-02"))
	for _, t := range tasks {
		source := uint(0)
		if t.SourceTaskID != nil {
			source = *t.SourceTaskID
		}
		fmt.Fprintf(w, "  task %d from %d: %s (project %d)\n", t.ID, source, t.Title, t.ProjectID)
	}
}
