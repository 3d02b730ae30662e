package commands

import (
	"fmt"
	"os"
	"siiau-backend/lib/scrapers/siiau"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fetchOut string

func init() {
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "Save the raw course offering page to a file.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [-o <page.html>]",
	Short: "Refreshes the catalog once and prints what was found.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		if fetchOut != "" {
			req, err := cfg.Catalog.Request()
			if err != nil {
				return err
			}
			client, err := cfg.Catalog.Client(nil)
			if err != nil {
				return err
			}
			raw, err := client.Fetch(cmd.Context(), req)
			if err != nil {
				return err
			}
			err = os.WriteFile(fetchOut, raw, 0644)
			if err != nil {
				return err
			}
			htmlPath = fetchOut
		}

		service, res, err := loadCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		t := newTable(out)
		t.AppendRow(table.Row{"Secciones", res.Sections})
		t.AppendRow(table.Row{"Materias", len(service.Snapshot().SubjectCodes())})
		t.AppendRow(table.Row{"Tablas", res.Tables})
		t.AppendRow(table.Row{"Digest", res.Digest})
		t.AppendRow(table.Row{"Fuente", source(cfg.Catalog.BaseUrl)})
		t.Render()
		if res.Empty {
			fmt.Fprintln(out, "La oferta no contiene tablas.")
		}
		return nil
	},
}

func source(baseUrl string) string {
	if htmlPath != "" {
		return htmlPath
	}
	if baseUrl == "" {
		return siiau.DefaultBaseUrl
	}
	return baseUrl
}
