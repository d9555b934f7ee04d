package imaging

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Sidecar is the capture-metadata document written next to each
// processed frame when sidecars are enabled.
type Sidecar struct {
	Source     string `json:"source"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	CapturedAt string `json:"captured_at,omitempty"` // RFC 3339, from EXIF when present
}

// writeSidecar records source path, output dimensions, and the EXIF
// capture time (when the source carries one) as <stem>_meta.json in
// outDir.
func writeSidecar(srcPath, outDir, stem string, bounds image.Rectangle) error {
	sc := Sidecar{
		Source: srcPath,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	if t, ok := captureTime(srcPath); ok {
		sc.CapturedAt = t.Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(sc, "", "    ")
	if err != nil {
		return fmt.Errorf("serialize sidecar for %s: %w", srcPath, err)
	}
	path := filepath.Join(outDir, stem+"_meta.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write sidecar %s: %w", path, err)
	}
	return nil
}

// captureTime extracts the EXIF DateTimeOriginal/DateTime from JPEG
// and TIFF sources. Missing or unreadable EXIF is not an error;
// microscope TIFFs frequently carry none.
func captureTime(path string) (time.Time, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".tif", ".tiff":
	default:
		return time.Time{}, false
	}

	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, false
	}
	t, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
