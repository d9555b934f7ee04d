package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"calproj/pkg/imaging"
	"calproj/pkg/manifest"
	"calproj/pkg/meta"
	"calproj/pkg/settings"

	"github.com/spf13/cobra"
)

// newStatusCmd creates the "calproj status" subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [root]",
		Short: "Summarize a project and verify its manifest",
		Long: `Loads the project manifest and prints a summary: groups, recordings
per group, raw/processed file counts, and annotated sessions. The
manifest is verified against the directories actually on disk;
mismatches are reported as warnings.`,
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
			return runStatus(cmd.OutOrStdout(), root)
		},
	}
}

// runStatus is the core status logic, separated for testability.
func runStatus(w io.Writer, root string) error {
	m, err := manifest.Load(root)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Project: %s", m.ProjectName)))
	fmt.Fprintf(w, "Root: %s\n\n", m.ProjectRoot)

	// Count images under the same extension set processing uses.
	var exts []string
	if cfg, err := settings.Load(root); err == nil {
		exts = cfg.Processing.Extensions
	}
	imgOpts := imaging.Options{Extensions: exts}

	totalRecordings := 0
	totalRaw := 0
	totalProcessed := 0
	annotated := 0

	for _, g := range m.Groups {
		fmt.Fprintf(w, "%s: %d recordings\n", g.GroupName, len(g.Recordings))
		for _, r := range g.Recordings {
			totalRecordings++

			raw := countImages(filepath.Join(root, r.Subfolders["raw"]), imgOpts)
			processed := countFiles(filepath.Join(root, r.Subfolders["processed"]))
			totalRaw += raw
			totalProcessed += processed
			fmt.Fprintf(w, "  %-16s raw: %-4d processed: %d\n", r.RecordingName, raw, processed)

			if s, err := meta.Load(meta.Path(filepath.Join(root, r.Subfolders["metadata"]))); err == nil && s.Experimenter != "" {
				annotated++
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d groups, %d recordings, %d raw images, %d processed files\n",
		len(m.Groups), totalRecordings, totalRaw, totalProcessed)
	if annotated > 0 {
		fmt.Fprintf(w, "Annotated sessions: %d/%d\n", annotated, totalRecordings)
	}

	diff, err := manifest.Verify(root, m)
	if err != nil {
		return err
	}
	if diff.Clean() {
		fmt.Fprintln(w, successStyle.Render("Manifest matches the directory tree."))
		return nil
	}
	for _, d := range diff.Missing {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("missing on disk: %s", d)))
	}
	for _, d := range diff.Extra {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("not in manifest: %s", d)))
	}
	return nil
}

// countImages counts image files directly inside dir that opts
// recognize.
func countImages(dir string, opts imaging.Options) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && opts.Supported(e.Name()) {
			n++
		}
	}
	return n
}

// countFiles counts regular files directly inside dir.
func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}
