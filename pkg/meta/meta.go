// Package meta reads and writes per-recording session metadata.
//
// Each recording's metadata/ folder carries a session.toml file.
// Setup writes an empty template; experimenters fill it in by hand
// and downstream tools read it back.
package meta

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the session metadata file inside a recording's
// metadata/ subfolder.
const FileName = "session.toml"

// Session describes one recording session. Fields are left empty in
// the template written at setup time.
type Session struct {
	Recording    string  `toml:"recording"`
	Group        string  `toml:"group"`
	Experimenter string  `toml:"experimenter"`
	Date         string  `toml:"date"` // YYYY-MM-DD, filled in by the experimenter
	Indicator    string  `toml:"indicator"`
	FrameRateHz  float64 `toml:"frame_rate_hz"`
	Notes        string  `toml:"notes"`
}

// Path returns the session file path for a recording's metadata dir.
func Path(metadataDir string) string {
	return filepath.Join(metadataDir, FileName)
}

// Write serializes the session to path.
func Write(path string, s Session) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	return nil
}

// Load parses the session file at path.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", path, err)
	}
	var s Session
	if err := toml.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parse session %s: %w", path, err)
	}
	return s, nil
}
