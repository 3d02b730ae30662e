package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"siiau-backend/internal/chrono"
	"siiau-backend/lib/catalog"
	"siiau-backend/lib/icalexport"

	"github.com/spf13/cobra"
)

var icalOut string

func init() {
	icalCmd.Flags().StringVarP(&icalOut, "out", "o", "", "Write the calendar to a file instead of stdout.")
	rootCmd.AddCommand(icalCmd)
}

var icalCmd = &cobra.Command{
	Use:   "ical <group | subject code | nrc | name>... [-o <horario.ics>]",
	Short: "Exports the schedule of the resolved sections as an iCalendar file.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		service, _, err := loadCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		sections := service.Resolve(catalog.ParseQuery(args))
		cal, skipped, err := icalexport.Export(sections, chrono.Guadalajara())
		if err != nil {
			return err
		}
		if skipped > 0 {
			slog.Warn("some schedule entries could not be exported", "skipped", skipped)
		}

		var out io.Writer = cmd.OutOrStdout()
		if icalOut != "" {
			f, err := os.Create(icalOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		err = cal.SerializeTo(out)
		if err != nil {
			return fmt.Errorf("write calendar: %w", err)
		}
		return nil
	},
}
