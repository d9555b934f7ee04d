// Package manifest reads and writes the project manifest, the
// config.json file at the project root that downstream tools use to
// locate data without re-deriving the naming scheme.
//
// Paths inside the manifest are relative to the project root, so a
// tree can be copied or moved wholesale and the manifest stays
// valid. The manifest is written once after tree creation and is
// read-only thereafter.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"calproj/pkg/project"
)

// FileName is the manifest file at the project root.
const FileName = "config.json"

// Manifest is the serialized snapshot of a scaffolded project.
type Manifest struct {
	ProjectName string  `json:"project_name"`
	ProjectRoot string  `json:"project_root"`
	Groups      []Group `json:"groups"`
}

// Group mirrors project.Group for serialization.
type Group struct {
	GroupName  string      `json:"group_name"`
	Path       string      `json:"path"`
	Recordings []Recording `json:"recordings"`
}

// Recording mirrors project.Recording for serialization.
type Recording struct {
	RecordingName string            `json:"recording_name"`
	Path          string            `json:"path"`
	Subfolders    map[string]string `json:"subfolders"`
}

// FromProject converts the in-memory layout into its manifest form.
// ProjectRoot records the absolute root at creation time; all other
// paths are relative to it.
func FromProject(p *project.Project) (*Manifest, error) {
	absRoot, err := filepath.Abs(p.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	m := &Manifest{
		ProjectName: p.Name,
		ProjectRoot: absRoot,
	}
	for _, g := range p.Groups {
		mg := Group{GroupName: g.Name, Path: g.Path}
		for _, r := range g.Recordings {
			sub := make(map[string]string, len(r.Subfolders))
			for kind, path := range r.Subfolders {
				sub[kind] = path
			}
			mg.Recordings = append(mg.Recordings, Recording{
				RecordingName: r.Name,
				Path:          r.Path,
				Subfolders:    sub,
			})
		}
		m.Groups = append(m.Groups, mg)
	}
	return m, nil
}

// Write serializes m to <root>/config.json. The document is written
// to a temporary file in the same directory and renamed into place,
// so a failed write never leaves a partial manifest behind.
func Write(root string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(root, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create manifest temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close manifest temp file: %w", err)
	}

	dst := filepath.Join(root, FileName)
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace manifest %s: %w", dst, err)
	}
	return nil
}

// Load parses <root>/config.json.
func Load(root string) (*Manifest, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// Dirs returns every directory the manifest references, relative to
// the project root, sorted.
func (m *Manifest) Dirs() []string {
	var dirs []string
	for _, g := range m.Groups {
		dirs = append(dirs, g.Path)
		for _, r := range g.Recordings {
			dirs = append(dirs, r.Path)
			for _, p := range r.Subfolders {
				dirs = append(dirs, p)
			}
		}
	}
	sort.Strings(dirs)
	return dirs
}

// Recordings flattens the manifest into (group, recording) pairs in
// manifest order.
func (m *Manifest) Recordings() []RecordingRef {
	var refs []RecordingRef
	for _, g := range m.Groups {
		for _, r := range g.Recordings {
			refs = append(refs, RecordingRef{Group: g.GroupName, Recording: r})
		}
	}
	return refs
}

// RecordingRef is one recording together with its owning group name.
type RecordingRef struct {
	Group     string
	Recording Recording
}

// Diff is the result of verifying a manifest against the filesystem.
type Diff struct {
	Missing []string // referenced by the manifest, absent on disk
	Extra   []string // structural dirs on disk the manifest does not know
}

// Clean reports whether the manifest and the filesystem agree.
func (d Diff) Clean() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0
}

// Verify compares the manifest's directory enumeration against the
// tree rooted at root. Only structural directories are considered:
// group, recording, and subfolder levels. Dot-directories (such as
// the .calproj state dir) are ignored.
func Verify(root string, m *Manifest) (Diff, error) {
	known := make(map[string]bool)
	for _, d := range m.Dirs() {
		known[d] = true
	}

	var diff Diff
	for d := range known {
		info, err := os.Stat(filepath.Join(root, d))
		if err != nil || !info.IsDir() {
			diff.Missing = append(diff.Missing, d)
		}
	}

	onDisk, err := structuralDirs(root)
	if err != nil {
		return Diff{}, err
	}
	for _, d := range onDisk {
		if !known[d] {
			diff.Extra = append(diff.Extra, d)
		}
	}

	sort.Strings(diff.Missing)
	sort.Strings(diff.Extra)
	return diff, nil
}

// structuralDirs enumerates directories up to three levels below
// root (group / recording / subfolder), skipping dot-directories.
func structuralDirs(root string) ([]string, error) {
	var dirs []string

	var walk func(dir, rel string, depth int) error
	walk = func(dir, rel string, depth int) error {
		if depth > 3 {
			return nil
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() || e.Name()[0] == '.' {
				continue
			}
			childRel := filepath.Join(rel, e.Name())
			dirs = append(dirs, childRel)
			if err := walk(filepath.Join(dir, e.Name()), childRel, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, "", 1); err != nil {
		return nil, err
	}
	return dirs, nil
}
