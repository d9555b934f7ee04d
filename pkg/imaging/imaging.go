// Package imaging applies the processing pipeline to calcium
// imaging frames: decode, convert to grayscale, denoise with a 5x5
// Gaussian blur, and write the result as PNG into the owning
// recording's processed/ folder.
//
// The transformation itself is a stand-in for externally defined
// analysis; the pipeline shape (capability check, per-file
// processing, batch aggregation) is the contract.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg" // decoder registration

	_ "golang.org/x/image/tiff" // decoder registration
)

// ErrUnsupported marks a file whose extension is not a recognized
// image type. The check happens before any file access.
var ErrUnsupported = errors.New("unsupported file type")

// defaultExts are the recognized image extensions. TIFF first: it is
// what acquisition software writes.
var defaultExts = []string{".tif", ".tiff", ".png", ".jpg", ".jpeg"}

// Options control batch processing.
type Options struct {
	OutDir     string   // output directory; empty means infer from the input path
	Recursive  bool     // descend into subdirectories in directory mode
	Jobs       int      // parallel workers; <=1 means sequential
	Sidecar    bool     // write a metadata sidecar per processed file
	Extensions []string // recognized extensions; empty means the default set
}

func (o Options) extSet() map[string]bool {
	exts := o.Extensions
	if len(exts) == 0 {
		exts = defaultExts
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return set
}

// Supported reports whether path has a recognized image extension
// under these options.
func (o Options) Supported(path string) bool {
	return o.extSet()[strings.ToLower(filepath.Ext(path))]
}

// Supported reports whether path has a recognized image extension
// under the default set.
func Supported(path string) bool {
	return (Options{}).Supported(path)
}

// ProcessFile runs the pipeline on a single image file and writes
// <stem>.png into outDir, creating it if needed. With sidecar set, a
// <stem>_meta.json capture-metadata file is written alongside the
// output. Returns the output path.
func ProcessFile(path, outDir string, sidecar bool) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !(Options{}).extSet()[ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	processed := gaussianBlur(toGray(img))

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", outDir, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(outDir, stem+".png")
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", outPath, err)
	}
	if err := png.Encode(out, processed); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("encode %s: %w", outPath, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", outPath, err)
	}

	if sidecar {
		if err := writeSidecar(path, outDir, stem, processed.Bounds()); err != nil {
			return "", err
		}
	}

	return outPath, nil
}

// InferOutDir picks the output directory for an input file or
// directory. Inputs inside a recording's raw/ folder map to the
// sibling processed/ folder; anything else gets a processed/
// directory next to (or inside) the input.
func InferOutDir(input string, isDir bool) string {
	dir := input
	if !isDir {
		dir = filepath.Dir(input)
	}
	if filepath.Base(dir) == "raw" {
		return filepath.Join(filepath.Dir(dir), "processed")
	}
	if isDir {
		return filepath.Join(input, "processed")
	}
	return filepath.Join(dir, "processed")
}

// toGray converts any decoded image to 8-bit grayscale.
func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x, y, src.At(x, y))
		}
	}
	return dst
}

// gaussKernel is the separable 5-tap binomial approximation of a
// Gaussian, matching the original pipeline's 5x5 blur.
var gaussKernel = [5]int{1, 4, 6, 4, 1}

const gaussKernelSum = 16

// gaussianBlur applies a 5x5 Gaussian blur with edge clamping.
func gaussianBlur(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return src
	}

	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	// Horizontal pass.
	tmp := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				xx := clamp(x+k, 0, w-1)
				sum += gaussKernel[k+2] * int(src.GrayAt(b.Min.X+xx, b.Min.Y+y).Y)
			}
			tmp.SetGray(b.Min.X+x, b.Min.Y+y, color.Gray{Y: uint8((sum + gaussKernelSum/2) / gaussKernelSum)})
		}
	}

	// Vertical pass.
	dst := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				yy := clamp(y+k, 0, h-1)
				sum += gaussKernel[k+2] * int(tmp.GrayAt(b.Min.X+x, b.Min.Y+yy).Y)
			}
			dst.SetGray(b.Min.X+x, b.Min.Y+y, color.Gray{Y: uint8((sum + gaussKernelSum/2) / gaussKernelSum)})
		}
	}
	return dst
}
