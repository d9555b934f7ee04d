package imaging

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"calproj/pkg/manifest"
)

// FileResult is the outcome of processing one file.
type FileResult struct {
	Path     string
	Output   string
	Err      error
	Duration time.Duration
}

// Report aggregates a batch run. Result order is not significant;
// parallel workers append as they finish.
type Report struct {
	Results []FileResult
	Skipped []string // enumerated files with unrecognized extensions

	mu sync.Mutex
}

func (r *Report) add(res FileResult) {
	r.mu.Lock()
	r.Results = append(r.Results, res)
	r.mu.Unlock()
}

// Succeeded counts files processed without error.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts per-file failures.
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Failures returns the failed results sorted by path.
func (r *Report) Failures() []FileResult {
	var out []FileResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// merge appends another report's entries.
func (r *Report) merge(other *Report) {
	r.Results = append(r.Results, other.Results...)
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// ProgressFunc observes per-file outcomes as they complete. May be
// called from multiple goroutines; nil disables progress reporting.
type ProgressFunc func(FileResult)

// ProcessDir enumerates image files in dir and processes each one,
// continuing past individual failures. One bad file never aborts the
// batch: failures are collected into the report. The returned error
// is only for enumeration-level problems (unreadable directory,
// canceled context).
func ProcessDir(ctx context.Context, dir string, opts Options, progress ProgressFunc) (*Report, error) {
	outDir := opts.OutDir
	if outDir == "" {
		outDir = InferOutDir(dir, true)
	}

	files, skipped, err := enumerate(dir, outDir, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{Skipped: skipped}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			out, err := ProcessFile(path, outDir, opts.Sidecar)
			res := FileResult{
				Path:     path,
				Output:   out,
				Err:      err,
				Duration: time.Since(start),
			}
			report.add(res)
			if progress != nil {
				progress(res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("process %s: %w", dir, err)
	}
	return report, nil
}

// ProcessProject processes every recording's raw/ folder listed in
// the manifest, writing into each recording's processed/ folder.
func ProcessProject(ctx context.Context, root string, m *manifest.Manifest, opts Options, progress ProgressFunc) (*Report, error) {
	total := &Report{}
	for _, ref := range m.Recordings() {
		raw, ok := ref.Recording.Subfolders["raw"]
		if !ok {
			continue
		}
		recOpts := opts
		recOpts.OutDir = filepath.Join(root, ref.Recording.Subfolders["processed"])

		rawDir := filepath.Join(root, raw)
		if _, err := os.Stat(rawDir); os.IsNotExist(err) {
			continue
		}

		rep, err := ProcessDir(ctx, rawDir, recOpts, progress)
		if err != nil {
			return total, err
		}
		total.merge(rep)
	}
	return total, nil
}

// Candidates returns the recognized image files a ProcessDir call
// over dir would pick up. Used by callers that want a total count
// before starting a batch (progress displays).
func Candidates(dir string, opts Options) ([]string, error) {
	outDir := opts.OutDir
	if outDir == "" {
		outDir = InferOutDir(dir, true)
	}
	files, _, err := enumerate(dir, outDir, opts)
	return files, err
}

// enumerate lists candidate files in dir, splitting them into
// recognized image files and skipped (unrecognized) files. The
// output directory and dot-directories are never descended into.
func enumerate(dir, outDir string, opts Options) (files, skipped []string, err error) {
	exts := opts.extSet()

	classify := func(path string) {
		if exts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		} else {
			skipped = append(skipped, path)
		}
	}

	if !opts.Recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("read directory %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			classify(filepath.Join(dir, e.Name()))
		}
		sort.Strings(files)
		return files, skipped, nil
	}

	absOut, _ := filepath.Abs(outDir)
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			abs, _ := filepath.Abs(path)
			if abs == absOut || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		classify(path)
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", dir, walkErr)
	}
	sort.Strings(files)
	return files, skipped, nil
}
