package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"calproj/pkg/imaging"
	"calproj/pkg/manifest"
	"calproj/pkg/settings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// settleDelay is how long a newly created file must sit before it is
// processed. Acquisition software writes frames incrementally;
// processing a half-written TIFF just produces a decode failure.
const settleDelay = 500 * time.Millisecond

// newWatchCmd creates the "calproj watch" subcommand.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [root]",
		Short: "Watch raw/ folders and process new images as they appear",
		Long: `Watches every recording's raw/ folder listed in the project
manifest. New image files are processed into the owning recording's
processed/ folder as they arrive. Runs until interrupted.`,
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
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), root)
		},
	}
}

// runWatch is the core watch loop, separated for testability. It
// returns when ctx is canceled.
func runWatch(ctx context.Context, w io.Writer, root string) error {
	m, err := manifest.Load(root)
	if err != nil {
		return err
	}

	// Canceled on every return path so settle-timer goroutines
	// blocked on the processed channel always unblock.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var exts []string
	if cfg, err := settings.Load(root); err == nil {
		exts = cfg.Processing.Extensions
	}
	imgOpts := imaging.Options{Extensions: exts}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	watched := 0
	for _, ref := range m.Recordings() {
		raw, ok := ref.Recording.Subfolders["raw"]
		if !ok {
			continue
		}
		dir := filepath.Join(root, raw)
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("cannot watch %s: %v", dir, err)))
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no raw/ folders to watch under %s", root)
	}

	fmt.Fprintf(w, "watching %d raw folders under %s\n", watched, root)

	// pending tracks files waiting out the settle delay, keyed by
	// path; re-created files just reset the timer.
	pending := make(map[string]*time.Timer)
	processed := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !imgOpts.Supported(event.Name) {
				continue
			}
			path := event.Name
			if t, exists := pending[path]; exists {
				t.Reset(settleDelay)
				continue
			}
			pending[path] = time.AfterFunc(settleDelay, func() {
				select {
				case processed <- path:
				case <-ctx.Done():
				}
			})

		case path := <-processed:
			delete(pending, path)
			out, err := imaging.ProcessFile(path, imaging.InferOutDir(path, false), false)
			if err != nil {
				fmt.Fprintf(w, "%s %s: %v\n", errorStyle.Render("failed"), path, err)
				continue
			}
			fmt.Fprintf(w, "%s %s -> %s\n", successStyle.Render("processed"), path, out)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("watch error: %v", err)))
		}
	}
}
