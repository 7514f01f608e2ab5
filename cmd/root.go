package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lehigh-university-libraries/catscan/internal/catalog"
	"github.com/lehigh-university-libraries/catscan/internal/cataloging"
	"github.com/lehigh-university-libraries/catscan/internal/config"
	"github.com/lehigh-university-libraries/catscan/internal/filler"
	"github.com/lehigh-university-libraries/catscan/internal/images"
	"github.com/lehigh-university-libraries/catscan/internal/storage"
)

// app carries the state shared by every command once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "catscan",
		Short: "Barcode scanner that fills catalog forms from BnF records",
		Long: `catscan scans the barcode of a book, CD or DVD, looks its record up in the
BnF catalogue and fills a cataloging form with the extracted metadata.

It can scan from camera folders, look single barcodes up, fill YAML forms,
process barcode lists in batch and serve everything over an HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.init(cmd.Flags())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ./"+config.DefaultFile+" when present)")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "Log format (auto, text, json)")
	cmd.PersistentFlags().String("catalog-url", "", "SRU endpoint of the catalog")
	cmd.PersistentFlags().String("media-dir", "", "Directory receiving downloaded covers")
	cmd.PersistentFlags().Bool("no-covers", false, "Do not fetch cover images")

	// Add subcommands
	cmd.AddCommand(newLookupCmd(a))
	cmd.AddCommand(newFillCmd(a))
	cmd.AddCommand(newScanCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newBatchCmd(a))

	return cmd
}

func (a *app) init(flags *pflag.FlagSet) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, flags); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = newLogger(os.Stderr, cfg.LogLevel(), cfg.Log.Format)
	slog.SetDefault(a.logger)
	return nil
}

// applyFlags copies the flags set on the command line over cfg.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		v := f.Value.String()
		switch f.Name {
		case "log-level":
			cfg.Log.Level = v
		case "log-format":
			cfg.Log.Format = v
		case "catalog-url":
			cfg.Catalog.BaseURL = v
		case "media-dir":
			cfg.Cover.MediaDir = v
		case "no-covers":
			cfg.Cover.Enabled = v != "true"
		case "port":
			cfg.Server.Port = v
		case "camera-dir":
			cfg.Scanner.CameraDir = v
		case "debug":
			if v == "true" {
				cfg.Scanner.Mode = "debug"
			}
		case "title-policy":
			cfg.Filler.BooksTitlePolicy = v
			cfg.Filler.MediaTitlePolicy = v
		case "interval":
			cfg.Scanner.Interval, err = time.ParseDuration(v)
		case "cooldown":
			cfg.Scanner.Cooldown, err = time.ParseDuration(v)
		}
		if err != nil {
			err = fmt.Errorf("invalid --%s: %w", f.Name, err)
		}
	})
	return err
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" || (format != "text" && !isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// service wires the catalog client, the cover resolver and the filler.
func (a *app) service() (*cataloging.Service, *storage.MediaLibrary, error) {
	client := catalog.NewClient(a.cfg.CatalogOptions(a.logger.With("component", "catalog")))

	opts, err := a.cfg.FillerOptions()
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, filler.WithLogger(a.logger.With("component", "filler")))

	var media *storage.MediaLibrary
	var covers filler.CoverResolver
	if a.cfg.Cover.Enabled {
		media = storage.NewMediaLibrary(a.cfg.Cover.MediaDir)
		resolver := images.NewCoverResolver(media, a.logger.With("component", "covers"))
		resolver.Prefix = a.cfg.Cover.Prefix
		resolver.MaxBytes = a.cfg.Cover.MaxBytes
		covers = resolver
	}

	svc := cataloging.NewService(client, filler.New(covers, opts...)).WithLogger(a.logger)
	return svc, media, nil
}
