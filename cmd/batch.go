package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/catscan/internal/batch"
	"github.com/lehigh-university-libraries/catscan/internal/export"
	"github.com/lehigh-university-libraries/catscan/internal/models"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		input       string
		output      string
		category    string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Look a list of barcodes up and export the results",
		Long: `Reads barcodes from a text file (one per line), a JSONL file of
{"barcode": ..., "category": ...} objects or a parquet file with a barcode
column, looks every one up and writes the results as YAML or parquet.`,
		Example: `  catscan batch --input shelf.txt --category books --output shelf.parquet
  catscan batch --input cds.jsonl --output cds.yaml --concurrency 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := models.ParseCategory(category)
			if err != nil {
				return err
			}

			items, err := batch.Load(input)
			if err != nil {
				return err
			}
			slog.Info("Barcodes loaded", "input", input, "count", len(items))

			svc, _, err := a.service()
			if err != nil {
				return err
			}

			runner := &batch.Runner{Service: svc, Concurrency: concurrency}
			rows, err := runner.Run(cmd.Context(), items, cat)
			if err != nil {
				return err
			}

			if err := export.WriteFile(output, input, rows); err != nil {
				return err
			}

			report := export.NewReport(input, rows, time.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "%d barcodes: %d found, %d failed\n", report.Total, report.Found, report.Failed)
			fmt.Fprintf(cmd.OutOrStdout(), "Results saved to: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Barcode list (.txt, .jsonl or .parquet)")
	cmd.Flags().StringVarP(&output, "output", "o", "results.yaml", "Output file (.yaml or .parquet)")
	cmd.Flags().StringVarP(&category, "category", "c", string(models.CategoryBooks), "Default category of the barcodes")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Lookups in flight at once")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
