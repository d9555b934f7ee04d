package imaging

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
)

// writePNG writes a small grayscale gradient PNG.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// writeTIFF writes a small grayscale TIFF.
func writeTIFF(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * y % 256)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := tiff.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

func TestOptionsSupported(t *testing.T) {
	t.Parallel()

	restricted := Options{Extensions: []string{".png"}}
	if !restricted.Supported("frame.png") {
		t.Error("restricted set should recognize .png")
	}
	if restricted.Supported("frame.tif") {
		t.Error("restricted set should not recognize .tif")
	}
	if !Supported("frame.tif") {
		t.Error("default set should recognize .tif")
	}
}

func TestProcessFile_PNG(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "frame_001.png")
	writePNG(t, src, 16, 12)

	outDir := filepath.Join(dir, "out")
	outPath, err := ProcessFile(src, outDir, false)
	if err != nil {
		t.Fatalf("ProcessFile() error: %v", err)
	}
	if outPath != filepath.Join(outDir, "frame_001.png") {
		t.Errorf("output path = %q", outPath)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 12 {
		t.Errorf("output dims = %dx%d, want 16x12", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestProcessFile_TIFF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "stack.tif")
	writeTIFF(t, src, 8, 8)

	outPath, err := ProcessFile(src, filepath.Join(dir, "processed"), false)
	if err != nil {
		t.Fatalf("ProcessFile() error: %v", err)
	}
	if filepath.Ext(outPath) != ".png" {
		t.Errorf("TIFF output should be PNG, got %s", outPath)
	}
}

func TestProcessFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ProcessFile(src, dir, false)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("ProcessFile() error = %v, want ErrUnsupported", err)
	}
}

func TestProcessFile_CorruptImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "bad.tif")
	if err := os.WriteFile(src, []byte("garbage, not tiff"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ProcessFile(src, filepath.Join(dir, "out"), false)
	if err == nil {
		t.Fatal("ProcessFile() on corrupt file: expected error")
	}
}

func TestProcessFile_Sidecar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "frame.png")
	writePNG(t, src, 4, 4)

	outDir := filepath.Join(dir, "out")
	if _, err := ProcessFile(src, outDir, true); err != nil {
		t.Fatalf("ProcessFile() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "frame_meta.json")); err != nil {
		t.Errorf("sidecar not written: %v", err)
	}
}

func TestProcessDir_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 8, 8)
	writeTIFF(t, filepath.Join(dir, "b.tif"), 8, 8)
	writePNG(t, filepath.Join(dir, "c.png"), 8, 8)
	if err := os.WriteFile(filepath.Join(dir, "broken.tif"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	rep, err := ProcessDir(context.Background(), dir, Options{Jobs: 2}, nil)
	if err != nil {
		t.Fatalf("ProcessDir() error: %v", err)
	}

	if rep.Succeeded() != 3 {
		t.Errorf("Succeeded() = %d, want 3", rep.Succeeded())
	}
	if rep.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", rep.Failed())
	}
	fails := rep.Failures()
	if len(fails) != 1 || filepath.Base(fails[0].Path) != "broken.tif" {
		t.Errorf("Failures() = %v, want broken.tif", fails)
	}

	// The three good files produced output.
	outDir := filepath.Join(dir, "processed")
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestProcessDir_SkipsUnrecognized(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 4, 4)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rep, err := ProcessDir(context.Background(), dir, Options{}, nil)
	if err != nil {
		t.Fatalf("ProcessDir() error: %v", err)
	}
	if len(rep.Skipped) != 1 {
		t.Errorf("Skipped = %v, want one entry", rep.Skipped)
	}
	if rep.Failed() != 0 {
		t.Errorf("Failed() = %d, want 0", rep.Failed())
	}
}

func TestProcessDir_NonRecursiveIgnoresSubdirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "top.png"), 4, 4)
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(sub, "deep.png"), 4, 4)

	rep, err := ProcessDir(context.Background(), dir, Options{}, nil)
	if err != nil {
		t.Fatalf("ProcessDir() error: %v", err)
	}
	if rep.Succeeded() != 1 {
		t.Errorf("non-recursive Succeeded() = %d, want 1", rep.Succeeded())
	}

	rep, err = ProcessDir(context.Background(), dir, Options{Recursive: true, OutDir: filepath.Join(dir, "out")}, nil)
	if err != nil {
		t.Fatalf("recursive ProcessDir() error: %v", err)
	}
	if rep.Succeeded() != 2 {
		t.Errorf("recursive Succeeded() = %d, want 2", rep.Succeeded())
	}
}

func TestInferOutDir(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		isDir bool
		want  string
	}{
		{filepath.Join("p", "g", "r", "raw"), true, filepath.Join("p", "g", "r", "processed")},
		{filepath.Join("p", "g", "r", "raw", "f.tif"), false, filepath.Join("p", "g", "r", "processed")},
		{filepath.Join("data", "frames"), true, filepath.Join("data", "frames", "processed")},
		{filepath.Join("data", "f.png"), false, filepath.Join("data", "processed")},
	}
	for _, tc := range cases {
		if got := InferOutDir(tc.input, tc.isDir); got != tc.want {
			t.Errorf("InferOutDir(%q, %v) = %q, want %q", tc.input, tc.isDir, got, tc.want)
		}
	}
}

func TestGaussianBlur_PreservesUniformImage(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}

	out := gaussianBlur(img)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if got := out.GrayAt(x, y).Y; got != 128 {
				t.Fatalf("uniform image changed at (%d,%d): %d", x, y, got)
			}
		}
	}
}

func TestGaussianBlur_SmoothsImpulse(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(0, 0, 9, 9))
	img.SetGray(4, 4, color.Gray{Y: 255})

	out := gaussianBlur(img)
	center := out.GrayAt(4, 4).Y
	if center >= 255 {
		t.Errorf("impulse not attenuated: center = %d", center)
	}
	if out.GrayAt(3, 4).Y == 0 {
		t.Error("impulse not spread to neighbors")
	}
}
