package manifest_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"calproj/pkg/manifest"
	"calproj/pkg/project"
	"calproj/pkg/scaffold"
)

func materializeDemo(t *testing.T) (*project.Project, *manifest.Manifest) {
	t.Helper()
	p, err := project.Build(project.Options{
		Name:       "demo",
		BaseDir:    t.TempDir(),
		Groups:     2,
		Recordings: 2,
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if _, err := scaffold.Materialize(p); err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}
	m, err := manifest.FromProject(p)
	if err != nil {
		t.Fatalf("FromProject() error: %v", err)
	}
	return p, m
}

func TestWriteLoadRoundTrip(t *testing.T) {
	t.Parallel()

	p, m := materializeDemo(t)
	if err := manifest.Write(p.Root, m); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := manifest.Load(p.Root)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got.ProjectName != "demo" {
		t.Errorf("ProjectName = %q, want demo", got.ProjectName)
	}
	if len(got.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(got.Groups))
	}
	if len(got.Dirs()) != 2+2*2+2*2*5 {
		t.Errorf("Dirs() = %d entries, want %d", len(got.Dirs()), 2+2*2+2*2*5)
	}
	if got.Groups[0].Recordings[0].Subfolders["raw"] != filepath.Join("group_01", "recording_001", "raw") {
		t.Errorf("raw path = %q", got.Groups[0].Recordings[0].Subfolders["raw"])
	}
}

func TestWrite_ContentEqualAcrossReruns(t *testing.T) {
	t.Parallel()

	p, m := materializeDemo(t)
	if err := manifest.Write(p.Root, m); err != nil {
		t.Fatalf("first Write() error: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(p.Root, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}

	// Second setup run over the same tree.
	if _, err := scaffold.Materialize(p); err != nil {
		t.Fatalf("rerun Materialize() error: %v", err)
	}
	m2, err := manifest.FromProject(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := manifest.Write(p.Root, m2); err != nil {
		t.Fatalf("second Write() error: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(p.Root, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Error("manifest content differs between setup runs")
	}
}

func TestWrite_NoTempFileLeftBehind(t *testing.T) {
	t.Parallel()

	p, m := materializeDemo(t)
	if err := manifest.Write(p.Root, m); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	entries, err := os.ReadDir(p.Root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	p, m := materializeDemo(t)

	diff, err := manifest.Verify(p.Root, m)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !diff.Clean() {
		t.Errorf("fresh tree should verify clean, got missing=%v extra=%v", diff.Missing, diff.Extra)
	}
}

func TestVerify_DetectsMissingAndExtra(t *testing.T) {
	t.Parallel()

	p, m := materializeDemo(t)

	removed := filepath.Join(p.Root, "group_02", "recording_002", "figures")
	if err := os.RemoveAll(removed); err != nil {
		t.Fatal(err)
	}
	added := filepath.Join(p.Root, "group_01", "stray")
	if err := os.Mkdir(added, 0o755); err != nil {
		t.Fatal(err)
	}

	diff, err := manifest.Verify(p.Root, m)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}

	if len(diff.Missing) != 1 || diff.Missing[0] != filepath.Join("group_02", "recording_002", "figures") {
		t.Errorf("Missing = %v, want the removed figures dir", diff.Missing)
	}
	if len(diff.Extra) != 1 || diff.Extra[0] != filepath.Join("group_01", "stray") {
		t.Errorf("Extra = %v, want the stray dir", diff.Extra)
	}
}

func TestVerify_IgnoresStateDir(t *testing.T) {
	t.Parallel()

	p, m := materializeDemo(t)
	if err := os.MkdirAll(filepath.Join(p.Root, ".calproj"), 0o755); err != nil {
		t.Fatal(err)
	}

	diff, err := manifest.Verify(p.Root, m)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !diff.Clean() {
		t.Errorf("dot-directories must be ignored, got extra=%v", diff.Extra)
	}
}
