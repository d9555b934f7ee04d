package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"calproj/pkg/meta"
)

func TestRunStatus_Summary(t *testing.T) {
	t.Parallel()

	root := setupDemoProject(t)
	writeTestPNG(t, filepath.Join(root, "group_01", "recording_001", "raw", "f.png"))

	var out strings.Builder
	if err := runStatus(&out, root); err != nil {
		t.Fatalf("runStatus() error: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Project: demo",
		"group_01: 1 recordings",
		"recording_001",
		"Total: 1 groups, 1 recordings, 1 raw images",
		"Manifest matches the directory tree.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("status output missing %q:\n%s", want, got)
		}
	}
}

func TestRunStatus_HonorsConfiguredExtensions(t *testing.T) {
	t.Parallel()

	root := setupDemoProject(t)
	doc := "processing:\n  extensions: [\".png\"]\n"
	if err := os.WriteFile(filepath.Join(root, "calproj.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	raw := filepath.Join(root, "group_01", "recording_001", "raw")
	writeTestPNG(t, filepath.Join(raw, "f.png"))
	if err := os.WriteFile(filepath.Join(raw, "scope.tif"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	if err := runStatus(&out, root); err != nil {
		t.Fatalf("runStatus() error: %v", err)
	}
	if !strings.Contains(out.String(), "1 raw images") {
		t.Errorf("raw count ignores the configured extension set:\n%s", out.String())
	}
}

func TestRunStatus_ReportsDrift(t *testing.T) {
	t.Parallel()

	root := setupDemoProject(t)
	if err := os.RemoveAll(filepath.Join(root, "group_01", "recording_001", "figures")); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	if err := runStatus(&out, root); err != nil {
		t.Fatalf("runStatus() error: %v", err)
	}
	if !strings.Contains(out.String(), "missing on disk") {
		t.Errorf("status did not report the missing directory:\n%s", out.String())
	}
}

func TestRunStatus_CountsAnnotatedSessions(t *testing.T) {
	t.Parallel()

	root := setupDemoProject(t)
	sessionPath := meta.Path(filepath.Join(root, "group_01", "recording_001", "metadata"))
	s, err := meta.Load(sessionPath)
	if err != nil {
		t.Fatalf("Load() session error: %v", err)
	}
	s.Experimenter = "elc"
	if err := meta.Write(sessionPath, s); err != nil {
		t.Fatalf("Write() session error: %v", err)
	}

	var out strings.Builder
	if err := runStatus(&out, root); err != nil {
		t.Fatalf("runStatus() error: %v", err)
	}
	if !strings.Contains(out.String(), "Annotated sessions: 1/1") {
		t.Errorf("status missing annotation count:\n%s", out.String())
	}
}

func TestRunStatus_NoManifest(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	if err := runStatus(&out, t.TempDir()); err == nil {
		t.Fatal("runStatus() without a manifest: expected error")
	}
}
