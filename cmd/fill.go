package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/catscan/internal/cataloging"
	"github.com/lehigh-university-libraries/catscan/internal/filler"
	"github.com/lehigh-university-libraries/catscan/internal/form"
	"github.com/lehigh-university-libraries/catscan/internal/models"
)

func newFillCmd(a *app) *cobra.Command {
	var category, formPath string

	cmd := &cobra.Command{
		Use:   "fill <barcode>",
		Short: "Look a barcode up and fill a YAML form with the result",
		Long: `Looks the barcode up and writes the metadata into the form stored in a YAML
file. Populated fields are kept. A missing form file is created with every
field of the category.`,
		Example: `  catscan fill 9782344055280 --category mangas --form volume.yaml
  catscan fill 3333297204126 --category dvds --form dvd.yaml --title-policy keep`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := models.ParseCategory(category)
			if err != nil {
				return err
			}

			f, err := openForm(formPath, cat)
			if err != nil {
				return err
			}

			svc, _, err := a.service()
			if err != nil {
				return err
			}

			_, messages, err := svc.Fill(cmd.Context(), args[0], cat, f)
			if err != nil {
				return fmt.Errorf("%s: %w", cataloging.UserMessage(err), err)
			}
			if err := f.Save(); err != nil {
				return err
			}

			slog.Info("Form saved", "path", f.Path(), "barcode", args[0])
			return printMessages(cmd.OutOrStdout(), messages)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(models.CategoryBooks), "Category: books, mangas, bds, cds, dvds")
	cmd.Flags().StringVarP(&formPath, "form", "f", "form.yaml", "YAML form file to fill")
	cmd.Flags().String("title-policy", "", "Override the title policy: keep or overwrite")

	return cmd
}

// openForm loads the form at path, or creates an empty form of category
// bound to path when the file does not exist yet.
func openForm(path string, category models.Category) (*form.File, error) {
	f, err := form.LoadFile(path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	m, ok := filler.NewForm(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", filler.ErrUnknownCategory, category)
	}
	slog.Info("Creating form file", "path", path, "category", category)
	return form.NewFile(path, m), nil
}

func printMessages(w io.Writer, messages []string) error {
	if len(messages) == 0 {
		_, err := fmt.Fprintln(w, "Nothing to fill")
		return err
	}
	for _, m := range messages {
		if _, err := fmt.Fprintln(w, m); err != nil {
			return err
		}
	}
	return nil
}

func printFormValues(w io.Writer, values *models.FormValues) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(values); err != nil {
		return fmt.Errorf("failed to encode form: %w", err)
	}
	return enc.Close()
}
