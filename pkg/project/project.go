// Package project defines the in-memory model of a calcium imaging
// project tree and builds the full directory layout from a small set
// of parameters (project name, group names, recordings per group).
//
// All paths in the model are relative to the project root, so a
// scaffolded tree can be moved without invalidating its manifest.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// SubfolderKinds is the fixed set of per-recording data folders,
// in creation order. Every recording has exactly these five.
var SubfolderKinds = []string{"raw", "metadata", "processed", "analysis", "figures"}

// ErrInvalidInput marks rejected setup parameters (bad counts,
// empty or path-unsafe names). Nothing is written to disk when a
// build fails with this error.
var ErrInvalidInput = errors.New("invalid input")

// Project is the top-level description of one study.
type Project struct {
	Name   string
	Root   string // directory the tree is rooted at (<base>/<name>)
	Groups []Group
}

// Group is one experimental condition (e.g. control, stimulated).
type Group struct {
	Name       string
	Path       string // relative to project root
	Recordings []Recording
}

// Recording is one data-collection session.
type Recording struct {
	Name       string
	Path       string            // relative to project root
	Subfolders map[string]string // kind -> path relative to project root
}

// Options are the setup parameters for Build.
type Options struct {
	Name       string   // project name, becomes the root directory name
	BaseDir    string   // directory the project root is created in, default "."
	GroupNames []string // explicit group names; when empty, Groups is used
	Groups     int      // number of generated groups (group_01, group_02, ...)
	Recordings int      // recordings per group (recording_001, ...)
}

// Build maps setup options to the complete project layout. It is
// pure: no filesystem access, no side effects. All validation
// happens here, before any directory is created.
func Build(opts Options) (*Project, error) {
	if err := validateName(opts.Name, "project name"); err != nil {
		return nil, err
	}
	if opts.Recordings < 1 {
		return nil, fmt.Errorf("%w: recordings per group must be positive, got %d", ErrInvalidInput, opts.Recordings)
	}

	groupNames := opts.GroupNames
	if len(groupNames) == 0 {
		if opts.Groups < 1 {
			return nil, fmt.Errorf("%w: group count must be positive, got %d", ErrInvalidInput, opts.Groups)
		}
		for i := 1; i <= opts.Groups; i++ {
			groupNames = append(groupNames, fmt.Sprintf("group_%02d", i))
		}
	}

	seen := make(map[string]bool, len(groupNames))
	for _, g := range groupNames {
		if err := validateName(g, "group name"); err != nil {
			return nil, err
		}
		if seen[g] {
			return nil, fmt.Errorf("%w: duplicate group name %q", ErrInvalidInput, g)
		}
		seen[g] = true
	}

	base := opts.BaseDir
	if base == "" {
		base = "."
	}

	p := &Project{
		Name: opts.Name,
		Root: filepath.Join(base, opts.Name),
	}

	for _, groupName := range groupNames {
		group := Group{
			Name: groupName,
			Path: groupName,
		}
		for r := 1; r <= opts.Recordings; r++ {
			recName := fmt.Sprintf("recording_%03d", r)
			recPath := filepath.Join(groupName, recName)
			rec := Recording{
				Name:       recName,
				Path:       recPath,
				Subfolders: make(map[string]string, len(SubfolderKinds)),
			}
			for _, kind := range SubfolderKinds {
				rec.Subfolders[kind] = filepath.Join(recPath, kind)
			}
			group.Recordings = append(group.Recordings, rec)
		}
		p.Groups = append(p.Groups, group)
	}

	return p, nil
}

// Dirs returns every directory of the layout relative to the project
// root, in creation order: groups, then recordings, then subfolders.
func (p *Project) Dirs() []string {
	var dirs []string
	for _, g := range p.Groups {
		dirs = append(dirs, g.Path)
		for _, r := range g.Recordings {
			dirs = append(dirs, r.Path)
			for _, kind := range SubfolderKinds {
				dirs = append(dirs, r.Subfolders[kind])
			}
		}
	}
	return dirs
}

// validateName rejects names that are empty or unsafe as a single
// path element. The name must survive filepath joining unchanged.
func validateName(name, what string) error {
	if name == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidInput, what)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %s %q is reserved", ErrInvalidInput, what, name)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %s %q has leading or trailing whitespace", ErrInvalidInput, what, name)
	}
	if i := strings.IndexAny(name, `<>:"/\|?*`); i >= 0 {
		return fmt.Errorf("%w: %s %q contains path-unsafe character %q", ErrInvalidInput, what, name, name[i])
	}
	for _, r := range name {
		if r < 0x20 {
			return fmt.Errorf("%w: %s contains control characters", ErrInvalidInput, what)
		}
	}
	return nil
}
