package component

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/scalefilter/pkg/output"
)

// StateVersion is the current schema version of the persisted selection.
const StateVersion = 1

// stateFileName is the filename of the persisted selection
const stateFileName = "selection.json"

// State is the persisted committed selection.
type State struct {
	Version  int      `json:"version"`
	Selected []string `json:"selected"`
}

// StatePath returns the path of the selection file in dir.
func StatePath(dir string) string {
	return filepath.Join(dir, stateFileName)
}

// SaveState writes the committed selection as its most compact id list.
// Without a state directory or a commit nothing is written.
func (c *Manager) SaveState() error {
	snap := c.model.Snapshot()
	if c.stateDir == "" || snap == nil {
		return nil
	}
	state := State{Version: StateVersion, Selected: output.HighestIDs(c.model, snap)}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal selection state: %w", err)
	}
	if err := os.MkdirAll(c.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", c.stateDir, err)
	}
	path := StatePath(c.stateDir)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write selection state to %s: %w", path, err)
	}
	return nil
}

// LoadState restores the persisted selection. A missing file means first run;
// an unreadable or future-version file is reported and ignored. It returns
// whether a selection was restored.
func (c *Manager) LoadState() bool {
	if c.stateDir == "" {
		return false
	}
	path := StatePath(c.stateDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		c.warn(fmt.Sprintf("invalid selection state file, using defaults: %v", err))
		return false
	}
	if state.Version != StateVersion {
		c.warn(fmt.Sprintf("unsupported selection state version %d, using defaults", state.Version))
		return false
	}
	if state.Selected == nil {
		state.Selected = []string{}
	}
	c.SetValue(state.Selected)
	return true
}
