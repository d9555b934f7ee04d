package main

import (
	"fmt"
	"os"
	"path/filepath"

	"calproj/pkg/manifest"
)

// State path constants.
const (
	// stateDirName is the per-project state directory at the project root.
	stateDirName = ".calproj"

	// runLogFileName is the processing run history database.
	runLogFileName = "runs.db"
)

// resolveRoot returns the project root to operate on.
// Resolution order:
//  1. explicit argument
//  2. CALPROJ_ROOT environment variable
//  3. walk up from the working directory until a config.json is found
func resolveRoot(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if v := os.Getenv("CALPROJ_ROOT"); v != "" {
		return v, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	if root, ok := findProjectRoot(cwd); ok {
		return root, nil
	}
	return "", fmt.Errorf("no %s found in %s or any parent (pass a project root or set CALPROJ_ROOT)", manifest.FileName, cwd)
}

// findProjectRoot walks up from start looking for a directory
// containing the manifest file.
func findProjectRoot(start string) (string, bool) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, manifest.FileName)); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// runLogPath returns the run-log database path for a project root,
// respecting the CALPROJ_RUNLOG override.
func runLogPath(root string) string {
	if v := os.Getenv("CALPROJ_RUNLOG"); v != "" {
		return v
	}
	return filepath.Join(root, stateDirName, runLogFileName)
}
