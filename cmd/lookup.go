package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/catscan/internal/cataloging"
	"github.com/lehigh-university-libraries/catscan/internal/models"
)

func newLookupCmd(a *app) *cobra.Command {
	var category, output string

	cmd := &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Look a barcode up and print the extracted metadata",
		Example: `  # Print a book record as a table
  catscan lookup 9782344055280 --category mangas

  # Print a CD record as YAML
  catscan lookup 5099706493526 --category cds --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := models.ParseCategory(category)
			if err != nil {
				return err
			}

			svc, _, err := a.service()
			if err != nil {
				return err
			}

			md, err := svc.Lookup(cmd.Context(), args[0], cat)
			if err != nil {
				return fmt.Errorf("%s: %w", cataloging.UserMessage(err), err)
			}
			return printMetadata(cmd.OutOrStdout(), md, output)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(models.CategoryBooks), "Category: books, mangas, bds, cds, dvds")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, yaml, json")

	return cmd
}

func printMetadata(w io.Writer, md *models.Metadata, output string) error {
	switch output {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(md); err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(md)
	case "table", "":
		rows := make([][]string, 0)
		for _, f := range md.Fields() {
			rows = append(rows, []string{f[0], f[1]})
		}
		for i, track := range md.Tracks {
			rows = append(rows, []string{fmt.Sprintf("track %d", i+1), track})
		}
		_, err := fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows))
		return err
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}
}

func renderTable(headers []string, rows [][]string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:           i + 1,
			AlignHeader:      text.AlignLeft,
			WidthMax:         80,
			WidthMaxEnforcer: text.WrapSoft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
