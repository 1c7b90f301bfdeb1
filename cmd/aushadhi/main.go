package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/aushadhi/client/config"
	"github.com/aushadhi/client/internal/domain"
	"github.com/aushadhi/client/internal/infrastructure/imaging"
	"github.com/aushadhi/client/internal/infrastructure/inference"
	"github.com/aushadhi/client/internal/infrastructure/preview"
	"github.com/aushadhi/client/internal/logging"
	"github.com/aushadhi/client/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("aushadhi", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: aushadhi [flags] <image>")
		fs.PrintDefaults()
	}

	fs.String("base-url", "", "inference service base URL")
	fs.Int("top-k", domain.DefaultTopK, "number of candidates to request")
	fs.Float64("threshold", domain.DefaultThreshold, "match score threshold (0-100)")
	fs.String("ocr-backend", string(domain.DefaultOCRBackend), "OCR backend: roboflow or easyocr")
	fs.Bool("enable-vision", false, "ask the backend for a vision score")
	fs.Int("max-dimension", imaging.DefaultMaxDimension, "longest side of the uploaded image in pixels")
	fs.String("environment", "development", "logging environment")
	fs.Bool("json", false, "print the display model as JSON")
	fs.BoolP("verbose", "v", false, "log pipeline progress to stderr")
	return fs
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger := zap.NewNop()
	if verbose, _ := fs.GetBool("verbose"); verbose {
		if logger, err = logging.NewLogger(cfg.Server.Environment); err != nil {
			fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
			return 1
		}
		defer func() { _ = logger.Sync() }()
	}

	previews := preview.NewMemoryStore()
	defer previews.Close()

	client := inference.NewClient(cfg.Inference.BaseURL, inference.Options{
		Timeout:   cfg.Inference.Timeout,
		RateLimit: cfg.Inference.RateLimit,
		RateBurst: cfg.Inference.RateBurst,
	}, logger)

	machine := usecase.NewMachine(imaging.NewNormalizer(logger), client, previews, usecase.MachineConfig{
		Params:       cfg.InferenceParams(),
		MaxDimension: cfg.Image.MaxDimension,
		PreviewTTL:   cfg.Preview.TTL,
	}, logger)
	defer machine.Close()

	ticket := machine.Capture(domain.NewFileImage(fs.Arg(0)))
	select {
	case <-ticket.Done:
	case <-ctx.Done():
		machine.Close()
		fmt.Fprintln(stderr, "interrupted")
		return 1
	}

	state := machine.State()
	model := usecase.Project(state)

	if asJSON, _ := fs.GetBool("json"); asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(model); err != nil {
			fmt.Fprintf(stderr, "Failed to write result: %v\n", err)
			return 1
		}
	} else {
		printModel(stdout, model)
	}

	if state.Phase == usecase.PhaseFailed {
		return 1
	}
	return 0
}

func printModel(w io.Writer, d usecase.DisplayModel) {
	fmt.Fprintf(w, "Status: %s\n", d.Status)
	if d.OCRText != "" {
		fmt.Fprintf(w, "OCR: %s\n", d.OCRText)
	}
	if len(d.Flags) > 0 {
		fmt.Fprintf(w, "Flags: %s\n", strings.Join(d.Flags, " • "))
	}
	if d.MainUses != nil && *d.MainUses != "" {
		fmt.Fprintf(w, "Main uses: %s\n", *d.MainUses)
	}
	if d.EditDistance != nil {
		fmt.Fprintf(w, "Edit distance: %d\n", *d.EditDistance)
	}
	if d.VisionScore != nil {
		fmt.Fprintf(w, "Vision score: %.1f\n", *d.VisionScore)
	}
	for i, m := range d.Matches() {
		fmt.Fprintf(w, "%d. %s\n", i+1, usecase.FormatMatch(m))
	}
}
