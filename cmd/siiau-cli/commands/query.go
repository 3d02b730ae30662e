package commands

import (
	"fmt"
	"siiau-backend/lib/catalog"

	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 25, "Maximum number of results.")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(searchCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <group | subject code | nrc | name>...",
	Short: "Resolves curriculum groups, subject codes, NRCs or exact names to sections.",
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
		if len(sections) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No se encontraron secciones.")
			return nil
		}
		renderSections(cmd.OutOrStdout(), sections)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Searches sections by name, subject code or NRC.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		service, _, err := loadCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		sections := service.Search(args[0], searchLimit)
		if len(sections) > 0 {
			renderSections(out, sections)
			return nil
		}
		fmt.Fprintln(out, "No se encontraron secciones.")
		for _, name := range service.Suggest(args[0], 5) {
			fmt.Fprintf(out, "  quizas: %s\n", name)
		}
		return nil
	},
}
