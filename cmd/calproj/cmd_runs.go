package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"calproj/pkg/runlog"

	"github.com/spf13/cobra"
)

// newRunsCmd creates the "calproj runs" subcommand.
func newRunsCmd() *cobra.Command {
	var (
		limit   int
		filesOf string
	)

	cmd := &cobra.Command{
		Use:   "runs [root]",
		Short: "Show processing run history",
		Long: `Lists recent processing runs recorded in the project's run log,
newest first. Use --files with a run ID to list that run's per-file
outcomes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			root, err := resolveRoot(arg)
			if err != nil {
				return err
			}
			return runRuns(cmd.Context(), cmd.OutOrStdout(), root, limit, filesOf)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	cmd.Flags().StringVar(&filesOf, "files", "", "show per-file outcomes for this run ID")

	return cmd
}

// runRuns is the core runs logic, separated for testability.
func runRuns(ctx context.Context, w io.Writer, root string, limit int, filesOf string) error {
	path := runLogPath(root)
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(w, "no processing runs recorded yet")
		return nil
	}

	l, err := runlog.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	if filesOf != "" {
		return printRunFiles(ctx, w, l, filesOf)
	}

	runs, err := l.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no processing runs recorded yet")
		return nil
	}

	fmt.Fprintf(w, "%-36s %-20s %-6s %-6s %s\n", "Run", "Finished", "OK", "Failed", "Source")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s %-20s %-6d %-6d %s\n",
			r.ID, r.FinishedAt.Local().Format(time.DateTime), r.Succeeded, r.Failed, r.Source)
	}
	return nil
}

func printRunFiles(ctx context.Context, w io.Writer, l *runlog.Log, runID string) error {
	files, err := l.Files(ctx, runID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(w, "no files recorded for run %s\n", runID)
		return nil
	}

	fmt.Fprintf(w, "%-8s %-10s %s\n", "Status", "Duration", "Path")
	for _, f := range files {
		status := successStyle.Render("ok")
		if f.Status != "ok" {
			status = errorStyle.Render("failed")
		}
		fmt.Fprintf(w, "%-8s %-10s %s\n", status, fmt.Sprintf("%dms", f.DurationMS), f.Path)
		if f.Error != "" {
			fmt.Fprintf(w, "         %s\n", dimStyle.Render(f.Error))
		}
	}
	return nil
}
