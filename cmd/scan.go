package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/catscan/internal/camera"
	"github.com/lehigh-university-libraries/catscan/internal/cataloging"
	"github.com/lehigh-university-libraries/catscan/internal/detect"
	"github.com/lehigh-university-libraries/catscan/internal/filler"
	"github.com/lehigh-university-libraries/catscan/internal/form"
	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/scanner"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		category    string
		formPath    string
		deviceName  string
		overlayPath string
		continuous  bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan barcodes from camera folders and fill forms",
		Long: `Runs the live scanner over folder cameras: every subdirectory of the camera
directory is a camera whose newest image is the current frame. Detected
barcodes are looked up and filled into the form.

In debug mode every frame's barcodes are drawn into an SVG overlay and
listed on stdout; type the number of a barcode to select it.`,
		Example: `  # Scan books from ./frames, filling volume.yaml
  catscan scan --camera-dir ./frames --category mangas --form volume.yaml

  # Pick among several barcodes by hand
  catscan scan --camera-dir ./frames --debug --overlay overlay.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := models.ParseCategory(category)
			if err != nil {
				return err
			}
			if a.cfg.Scanner.CameraDir == "" {
				return errors.New("--camera-dir is required")
			}
			mode, err := a.cfg.ScannerMode()
			if err != nil {
				return err
			}

			svc, _, err := a.service()
			if err != nil {
				return err
			}

			s := &scanSession{
				app:         a,
				service:     svc,
				category:    cat,
				formPath:    formPath,
				overlayPath: overlayPath,
				continuous:  continuous,
				out:         cmd.OutOrStdout(),
				values:      make(chan string, 1),
			}
			return s.run(cmd.Context(), mode, deviceName, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(models.CategoryBooks), "Category: books, mangas, bds, cds, dvds")
	cmd.Flags().StringVarP(&formPath, "form", "f", "", "YAML form file to fill (default: print the filled form)")
	cmd.Flags().String("camera-dir", "", "Directory holding one subdirectory per camera")
	cmd.Flags().StringVar(&deviceName, "camera", "", "Camera id or label (default: the back camera, else the first)")
	cmd.Flags().Bool("debug", false, "Draw detections and select barcodes by hand")
	cmd.Flags().StringVar(&overlayPath, "overlay", "overlay.svg", "SVG file receiving the debug overlay")
	cmd.Flags().Duration("interval", scanner.DefaultInterval, "Delay between two detection passes")
	cmd.Flags().Duration("cooldown", scanner.DefaultCooldown, "Window during which a repeated barcode is ignored")
	cmd.Flags().BoolVar(&continuous, "continuous", false, "Keep scanning after the first fill")

	return cmd
}

type scanSession struct {
	app         *app
	service     *cataloging.Service
	category    models.Category
	formPath    string
	overlayPath string
	continuous  bool
	out         io.Writer
	values      chan string

	mu     sync.Mutex
	listed string
}

func (s *scanSession) run(ctx context.Context, mode scanner.Mode, deviceName string, in io.Reader) error {
	cfg := s.app.cfg
	logger := s.app.logger

	detector, err := detect.New(cfg.Scanner.Formats...)
	if err != nil {
		return err
	}
	devices := camera.NewFolder(cfg.Scanner.CameraDir, logger.With("component", "camera"))

	opts := scanner.Options{
		Detector: detector,
		Devices:  devices,
		Surface:  camera.NewSurface(),
		Sink:     scanner.ResultFunc(s.offer),
		Reporter: scanner.ReporterFunc(func(err error) {
			fmt.Fprintln(os.Stderr, cataloging.UserMessage(err))
		}),
		Mode:     mode,
		Interval: cfg.Scanner.Interval,
		Cooldown: cfg.Scanner.Cooldown,
		Logger:   logger.With("component", "scanner"),
	}
	if mode == scanner.ModeDebug {
		opts.Overlay = scanner.OverlayFunc(s.showOverlay)
	}

	sc, err := scanner.New(ctx, opts)
	if err != nil {
		return err
	}
	if err := sc.Start(ctx); err != nil {
		return err
	}
	defer sc.Stop()

	if deviceName != "" {
		id, err := devices.FindDevice(ctx, deviceName)
		if err != nil {
			return err
		}
		if err := sc.ChangeDevice(ctx, id); err != nil {
			return err
		}
	}
	slog.Info("Scanning", "camera", sc.DeviceID(), "mode", mode, "category", s.category)

	if mode == scanner.ModeDebug {
		go s.readSelections(ctx, sc, in)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case value := <-s.values:
			if err := s.fill(ctx, value); err != nil {
				fmt.Fprintln(os.Stderr, cataloging.UserMessage(err))
				continue
			}
			if !s.continuous {
				return nil
			}
		}
	}
}

// offer passes a detected value on unless a fill is already pending.
func (s *scanSession) offer(value string) {
	select {
	case s.values <- value:
	default:
		slog.Debug("Fill pending, dropping barcode", "value", value)
	}
}

func (s *scanSession) fill(ctx context.Context, barcode string) error {
	var sink *form.File
	var err error
	if s.formPath != "" {
		if sink, err = openForm(s.formPath, s.category); err != nil {
			return err
		}
	} else {
		m, ok := filler.NewForm(s.category)
		if !ok {
			return fmt.Errorf("%w: %q", filler.ErrUnknownCategory, s.category)
		}
		sink = form.NewFile("", m)
	}

	fmt.Fprintf(s.out, "Barcode %s\n", barcode)
	_, messages, err := s.service.Fill(ctx, barcode, s.category, sink)
	if err != nil {
		return err
	}
	if err := printMessages(s.out, messages); err != nil {
		return err
	}

	if sink.Path() == "" {
		return printFormValues(s.out, sink.Values())
	}
	return sink.Save()
}

func (s *scanSession) showOverlay(o scanner.Overlay) {
	if s.overlayPath != "" {
		if err := os.WriteFile(s.overlayPath, []byte(o.SVG()), 0644); err != nil {
			slog.Warn("Failed to write overlay", "path", s.overlayPath, "error", err)
		}
	}
	if !s.regionsChanged(o.Regions) || len(o.Regions) == 0 {
		return
	}
	for i, r := range o.Regions {
		fmt.Fprintf(s.out, "[%d] %s (%s)\n", i, r.Value, r.Format)
	}
}

// regionsChanged records the values of regions and reports whether they
// differ from the last overlay.
func (s *scanSession) regionsChanged(regions []scanner.Region) bool {
	values := make([]string, len(regions))
	for i, r := range regions {
		values[i] = r.Value
	}
	key := strings.Join(values, "\x00")

	s.mu.Lock()
	defer s.mu.Unlock()
	if key == s.listed {
		return false
	}
	s.listed = key
	return true
}

// readSelections reads region numbers from in and selects the matching
// region of the current overlay.
func (s *scanSession) readSelections(ctx context.Context, sc *scanner.Scanner, in io.Reader) {
	lines := bufio.NewScanner(in)
	for lines.Scan() {
		if ctx.Err() != nil {
			return
		}
		idx, err := strconv.Atoi(strings.TrimSpace(lines.Text()))
		regions := sc.Overlay().Regions
		if err != nil || idx < 0 || idx >= len(regions) {
			fmt.Fprintf(s.out, "Type a number between 0 and %d\n", len(regions)-1)
			continue
		}
		if err := sc.Select(regions[idx]); err != nil {
			slog.Warn("Selection failed", "error", err)
		}
	}
}
