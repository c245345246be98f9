package engine

import (
	"encoding/json"
	"os"
)

// EngineConfig is the engine's runtime configuration, grounded on the
// teacher's own Config type and loaded the same way: a JSON document
// decoded straight into the struct.
type EngineConfig struct {
	// BackingFilePath is the single host file the entire tree lives in.
	BackingFilePath string `json:"BackingFilePath"`

	// DefragEfficiencyThreshold is the live/storage ratio below which
	// Defragment actually compacts the backing file. 0.4 matches spec.md
	// §4.3; it is a tuning knob, not a correctness property.
	DefragEfficiencyThreshold float64 `json:"DefragEfficiencyThreshold"`

	// WatchBackingFile enables the diagnostic fsnotify watch described in
	// SPEC_FULL.md §4.8. It never gates or blocks an operation.
	WatchBackingFile bool `json:"WatchBackingFile"`
}

// NewEngineConfig creates a configuration instance with default values for
// the given backing file path.
func NewEngineConfig(backingFilePath string) *EngineConfig {
	return &EngineConfig{
		BackingFilePath:           backingFilePath,
		DefragEfficiencyThreshold: 0.4,
		WatchBackingFile:          false,
	}
}

func (c *EngineConfig) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(c); err != nil {
		return err
	}
	return nil
}
