package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mptcli/internal/config"
	"mptcli/internal/exporter"
	"mptcli/internal/files"
	"mptcli/internal/infrastructure"
	"mptcli/internal/operations"
	"mptcli/pkg/contracts"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usage = `Usage: mptprocess [flags] <file.mpt | directory | glob>...

Processes EC-Lab ASCII exports: resolution crop, cycle segmentation and, for
charge/discharge files, capacitance analysis. Results are written as CSV.

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options are the command line flags
type options struct {
	configPath string
	outDir     string
	workers    int
	bom        bool
	cycles     bool
	version    bool
	inputs     []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("mptprocess", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file (MPT_* environment variables override it)")
	fs.StringVar(&opts.outDir, "out", "out", "output directory for CSV files")
	fs.IntVar(&opts.workers, "workers", 0, "files processed concurrently (overrides the config)")
	fs.BoolVar(&opts.bom, "bom", false, "start CSV files with a UTF-8 BOM")
	fs.BoolVar(&opts.cycles, "cycles", true, "write one CSV file per cycle")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.version {
		return opts, nil
	}

	opts.inputs = fs.Args()
	if len(opts.inputs) == 0 {
		fs.Usage()
		return nil, errors.New("no input files given")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}
	if opts.workers > 0 {
		cfg.Pipeline.Workers = opts.workers
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(stderr, "Error: failed to initialize logger:", err)
		return exitFailure
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry", slog.String("error", err.Error()))
		return exitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("OpenTelemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	paths, err := files.NewDiscovery("").ResolveInputs(opts.inputs)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "Error: no .mpt files found")
		return exitUsage
	}

	tracer, err := operations.NewPipelineTracer(providers)
	if err != nil {
		logger.Error("Failed to create pipeline tracer", slog.String("error", err.Error()))
		return exitFailure
	}
	pipeline, err := operations.NewPipeline(operations.OptionsFrom(cfg.Pipeline), tracer)
	if err != nil {
		logger.Error("Failed to create pipeline", slog.String("error", err.Error()))
		return exitFailure
	}

	logger.Info("Starting mptprocess",
		slog.Int("files", len(paths)),
		slog.String("output_dir", opts.outDir),
		slog.Int("workers", cfg.Pipeline.Workers))

	result := operations.NewBatchRunner(pipeline, cfg.Pipeline.Workers).Run(ctx, paths)

	manager := files.NewManager(opts.outDir)
	if err := manager.EnsureDirectory(); err != nil {
		logger.Error("Failed to create output directory", slog.String("error", err.Error()))
		return exitFailure
	}
	writer := exporter.NewCSVWriter(manager).WithBOM(opts.bom)
	written, err := exportResults(writer, result, opts.cycles)
	if err != nil {
		logger.Error("Failed to export results", slog.String("error", err.Error()))
		return exitFailure
	}

	if err := providers.WriteMetricsFile(cfg.Telemetry.MetricsFile); err != nil {
		logger.Warn("Failed to write metrics file", slog.String("error", err.Error()))
	}

	printSummary(stdout, result, written)
	if len(result.Failed()) > 0 {
		return exitFailure
	}
	return exitOK
}

// exportResults writes the CSV outputs of every successful file and the
// batch-wide tables. It returns the number of files written.
func exportResults(w *exporter.CSVWriter, result *operations.BatchResult, cycles bool) (int, error) {
	written := 0
	for _, f := range result.Succeeded() {
		if f.Cropped != nil {
			if _, err := w.WriteCropped(f.Label, f.Cropped); err != nil {
				return written, fmt.Errorf("%s: %w", f.Source, err)
			}
			written++
		}
		if cycles && f.Segmentation != nil {
			paths, err := w.WriteCycles(f.Label, f.Segmentation)
			written += len(paths)
			if err != nil {
				return written, fmt.Errorf("%s: %w", f.Source, err)
			}
		}
		if f.Capacitance != nil {
			if _, err := w.WriteCapacitance(f.Label, f.Capacitance); err != nil {
				return written, fmt.Errorf("%s: %w", f.Source, err)
			}
			if _, err := w.WriteHalfCycles(f.Label, f.Capacitance); err != nil {
				return written, fmt.Errorf("%s: %w", f.Source, err)
			}
			written += 2
		}
	}

	if rows := result.CombinedCapacitances(); len(rows) > 0 {
		if _, err := w.WriteCombinedCapacitance(rows); err != nil {
			return written, err
		}
		written++
	}
	if combined := result.CombinedCropped(); combined.Len() > 0 {
		if _, err := w.WriteCombinedCropped(combined); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func printSummary(out io.Writer, result *operations.BatchResult, written int) {
	failed := result.Failed()
	fmt.Fprintf(out, "Processed %d files in %s: %d succeeded, %d failed, %d CSV files written\n",
		len(result.Files), result.Duration.Round(time.Millisecond), len(result.Files)-len(failed), len(failed), written)
	for _, f := range failed {
		fmt.Fprintf(out, "  FAILED %s\n", f.Err)
	}
}
