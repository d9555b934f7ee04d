// Package scaffold materializes a project layout on disk: every
// group, recording, and subfolder directory, plus placeholder
// README files and a session metadata template per recording.
//
// Materialize is idempotent. Existing directories are left alone and
// existing placeholder files are never overwritten, so re-running
// setup on a partially or fully created tree is safe.
package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"calproj/pkg/meta"
	"calproj/pkg/project"
)

// ErrPathConflict marks a target path that already exists as a
// non-directory file where a directory is required.
var ErrPathConflict = errors.New("path conflict")

// Result summarizes what Materialize did.
type Result struct {
	DirsCreated  int
	DirsExisting int
	FilesWritten int
	FilesKept    int
}

// Materialize creates the full directory tree for p. Directories are
// created with 0755 and missing parents are filled in. On the first
// conflicting or inaccessible path the error is returned immediately;
// already-created directories are left in place (re-running recovers).
func Materialize(p *project.Project) (*Result, error) {
	res := &Result{}

	if err := ensureDir(p.Root, res); err != nil {
		return res, err
	}
	if err := writeIfMissing(filepath.Join(p.Root, "README.md"), projectReadme(p.Name), res); err != nil {
		return res, err
	}

	for _, g := range p.Groups {
		if err := ensureDir(filepath.Join(p.Root, g.Path), res); err != nil {
			return res, err
		}
		if err := writeIfMissing(filepath.Join(p.Root, g.Path, "README.md"), groupReadme(g.Name), res); err != nil {
			return res, err
		}

		for _, r := range g.Recordings {
			if err := ensureDir(filepath.Join(p.Root, r.Path), res); err != nil {
				return res, err
			}
			for _, kind := range project.SubfolderKinds {
				if err := ensureDir(filepath.Join(p.Root, r.Subfolders[kind]), res); err != nil {
					return res, err
				}
			}

			if err := writeIfMissing(filepath.Join(p.Root, r.Path, "README.md"), recordingReadme(r.Name), res); err != nil {
				return res, err
			}

			sessionPath := meta.Path(filepath.Join(p.Root, r.Subfolders["metadata"]))
			if _, err := os.Stat(sessionPath); err == nil {
				res.FilesKept++
			} else {
				if err := meta.Write(sessionPath, meta.Session{Recording: r.Name, Group: g.Name}); err != nil {
					return res, err
				}
				res.FilesWritten++
			}
		}
	}

	return res, nil
}

// ensureDir creates dir if needed and records the outcome in res.
func ensureDir(dir string, res *Result) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		res.DirsExisting++
		return nil
	case err == nil:
		return fmt.Errorf("%w: %s exists and is not a directory", ErrPathConflict, dir)
	case !os.IsNotExist(err):
		return fmt.Errorf("stat %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	res.DirsCreated++
	return nil
}

// writeIfMissing writes content to path unless the file already
// exists. Existing files are kept untouched so re-runs never clobber
// notes an experimenter has edited.
func writeIfMissing(path, content string, res *Result) error {
	if _, err := os.Stat(path); err == nil {
		res.FilesKept++
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	res.FilesWritten++
	return nil
}

func projectReadme(name string) string {
	return fmt.Sprintf("# %s\n\nThis is a structured directory for calcium imaging data.\n", name)
}

func groupReadme(name string) string {
	return fmt.Sprintf("# %s\n\nThis folder contains multiple recording sessions.\n", name)
}

func recordingReadme(name string) string {
	return fmt.Sprintf("# %s\n\nThis folder contains data for %s.\n", name, name)
}
