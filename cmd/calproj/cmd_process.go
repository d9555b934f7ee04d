package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"calproj/pkg/imaging"
	"calproj/pkg/manifest"
	"calproj/pkg/runlog"
	"calproj/pkg/settings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// processOptions are the resolved inputs for one process invocation.
type processOptions struct {
	Input       string // file or directory; empty in project mode
	ProjectRoot string // set by --project
	OutDir      string
	Recursive   bool
	Jobs        int
	Sidecar     bool
	Plain       bool
}

// newProcessCmd creates the "calproj process" subcommand.
func newProcessCmd() *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process [path]",
		Short: "Process images from a file, directory, or whole project",
		Long: `Applies the processing pipeline (grayscale + Gaussian denoise) to
calcium imaging frames and writes PNG output into the owning
recording's processed/ folder.

With a file argument, that single image is processed. With a
directory argument, every recognized image file in it is processed;
individual failures are collected into a report and never abort the
batch. With --project, every recording's raw/ folder listed in the
project manifest is processed.

The exit code is nonzero when any file failed, even though all
feasible work is completed first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Input = args[0]
			}
			if opts.Input == "" && opts.ProjectRoot == "" {
				return fmt.Errorf("pass a file or directory path, or --project")
			}
			interactive := isatty.IsTerminal(os.Stdout.Fd()) && !opts.Plain
			return runProcess(cmd.Context(), cmd.OutOrStdout(), interactive, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ProjectRoot, "project", "", "process every recording's raw/ folder of the project at this root")
	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "output directory (default: the owning recording's processed/ folder)")
	cmd.Flags().BoolVarP(&opts.Recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "parallel workers (default: number of CPUs)")
	cmd.Flags().BoolVar(&opts.Sidecar, "sidecar", false, "write a capture-metadata sidecar per processed file")
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "plain line output instead of the progress display")

	return cmd
}

// runProcess is the core processing logic, separated for testability.
func runProcess(ctx context.Context, w io.Writer, interactive bool, opts processOptions) error {
	if opts.ProjectRoot != "" {
		return runProcessProject(ctx, w, interactive, opts)
	}

	info, err := os.Stat(opts.Input)
	if err != nil {
		return fmt.Errorf("input %s: %w", opts.Input, err)
	}

	if !info.IsDir() {
		outDir := opts.OutDir
		if outDir == "" {
			outDir = imaging.InferOutDir(opts.Input, false)
		}
		out, err := imaging.ProcessFile(opts.Input, outDir, opts.Sidecar)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s -> %s\n", successStyle.Render("processed"), opts.Input, out)
		return nil
	}

	imgOpts := batchOptions(opts)
	started := time.Now()
	rep, err := runBatch(ctx, w, interactive, opts.Input, func(ctx context.Context, progress imaging.ProgressFunc) (*imaging.Report, error) {
		return imaging.ProcessDir(ctx, opts.Input, imgOpts, progress)
	}, func() (int, error) {
		files, err := imaging.Candidates(opts.Input, imgOpts)
		return len(files), err
	})
	if err != nil {
		return err
	}

	recordRun(ctx, w, opts.Input, started, rep)
	return reportSummary(w, rep)
}

// runProcessProject processes every recording's raw/ folder per the
// manifest.
func runProcessProject(ctx context.Context, w io.Writer, interactive bool, opts processOptions) error {
	root, err := resolveRoot(opts.ProjectRoot)
	if err != nil {
		return err
	}
	m, err := manifest.Load(root)
	if err != nil {
		return err
	}

	imgOpts := batchOptions(opts)
	imgOpts.OutDir = "" // per-recording output dirs come from the manifest

	started := time.Now()
	rep, err := runBatch(ctx, w, interactive, root, func(ctx context.Context, progress imaging.ProgressFunc) (*imaging.Report, error) {
		return imaging.ProcessProject(ctx, root, m, imgOpts, progress)
	}, nil)
	if err != nil {
		return err
	}

	recordRun(ctx, w, root, started, rep)
	return reportSummary(w, rep)
}

// batchOptions maps CLI options onto imaging options, filling gaps
// from the project's calproj.yaml when one is in scope.
func batchOptions(opts processOptions) imaging.Options {
	imgOpts := imaging.Options{
		OutDir:    opts.OutDir,
		Recursive: opts.Recursive,
		Jobs:      opts.Jobs,
		Sidecar:   opts.Sidecar,
	}

	start := opts.Input
	if opts.ProjectRoot != "" {
		start = opts.ProjectRoot
	}
	if root, ok := findProjectRoot(start); ok {
		if cfg, err := settings.Load(root); err == nil {
			if imgOpts.Jobs == 0 {
				imgOpts.Jobs = cfg.Processing.Jobs
			}
			if !imgOpts.Recursive {
				imgOpts.Recursive = cfg.Processing.Recursive
			}
			if !imgOpts.Sidecar {
				imgOpts.Sidecar = cfg.Processing.Sidecar
			}
			if len(cfg.Processing.Extensions) > 0 {
				imgOpts.Extensions = cfg.Processing.Extensions
			}
		}
	}
	return imgOpts
}

// runBatch executes a batch either behind the progress display or
// with plain per-file output lines.
func runBatch(ctx context.Context, w io.Writer, interactive bool, source string,
	batch func(context.Context, imaging.ProgressFunc) (*imaging.Report, error),
	count func() (int, error),
) (*imaging.Report, error) {
	if interactive {
		total := 0
		if count != nil {
			n, err := count()
			if err != nil {
				return nil, err
			}
			total = n
		}
		return runProgressUI(ctx, w, source, total, batch)
	}

	started := time.Now()
	rep, err := batch(ctx, func(res imaging.FileResult) {
		if res.Err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", errorStyle.Render("failed"), res.Path, res.Err)
			return
		}
		fmt.Fprintf(w, "%s %s -> %s\n", successStyle.Render("processed"), res.Path, res.Output)
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("finished in %s", time.Since(started).Round(time.Millisecond))))
	return rep, nil
}

// recordRun persists the batch outcome to the project's run log when
// the source lives inside a scaffolded project. Failure to record is
// reported but never fails the processing itself.
func recordRun(ctx context.Context, w io.Writer, source string, started time.Time, rep *imaging.Report) {
	root, ok := findProjectRoot(source)
	if !ok {
		return
	}

	l, err := runlog.Open(runLogPath(root))
	if err != nil {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("run log unavailable: %v", err)))
		return
	}
	defer l.Close()

	run := runlog.Run{
		ID:         uuid.New().String(),
		Source:     source,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Total:      len(rep.Results),
		Succeeded:  rep.Succeeded(),
		Failed:     rep.Failed(),
	}

	files := make([]runlog.FileRecord, 0, len(rep.Results))
	for _, res := range rep.Results {
		rec := runlog.FileRecord{
			Path:       res.Path,
			Output:     res.Output,
			Status:     "ok",
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			rec.Status = "failed"
			rec.Error = res.Err.Error()
		}
		files = append(files, rec)
	}

	if err := l.Record(ctx, run, files); err != nil {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("record run: %v", err)))
	}
}

// reportSummary prints the aggregated outcome and returns an error
// when any file failed, so the process exits nonzero after
// completing all feasible work.
func reportSummary(w io.Writer, rep *imaging.Report) error {
	fmt.Fprintf(w, "%d processed, %d failed", rep.Succeeded(), rep.Failed())
	if len(rep.Skipped) > 0 {
		fmt.Fprintf(w, ", %d skipped (unrecognized type)", len(rep.Skipped))
	}
	fmt.Fprintln(w)

	for _, f := range rep.Failures() {
		fmt.Fprintf(w, "  %s %s: %v\n", errorStyle.Render("failed"), f.Path, f.Err)
	}

	if failed := rep.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(rep.Results))
	}
	return nil
}
