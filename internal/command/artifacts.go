package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Artifacts stores command output files under a data directory. Stored paths
// are relative to that directory and use forward slashes.
type Artifacts struct {
	root string
}

// NewArtifacts returns an Artifacts rooted at dataDir.
func NewArtifacts(dataDir string) *Artifacts {
	return &Artifacts{root: dataDir}
}

// SaveScreenshot writes a PNG for machineID and returns its relative path,
// screenshots/<machine>/<id>.png.
func (a *Artifacts) SaveScreenshot(machineID, id string, data []byte) (string, error) {
	rel := path.Join("screenshots", machineID, id+".png")
	abs, err := a.Path(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", fmt.Errorf("creating screenshot dir: %w", err)
	}
	if err := os.WriteFile(abs, data, 0o640); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	return rel, nil
}

// Path resolves a stored relative path. Paths that escape the root are rejected.
func (a *Artifacts) Path(rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("artifact path %q escapes data dir", rel)
	}
	return filepath.Join(a.root, local), nil
}

// Remove deletes a stored file. A missing file is not an error.
func (a *Artifacts) Remove(rel string) error {
	abs, err := a.Path(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing artifact: %w", err)
	}
	return nil
}

// RemoveMachine deletes every file stored for machineID.
func (a *Artifacts) RemoveMachine(machineID string) error {
	abs, err := a.Path(path.Join("screenshots", machineID))
	if err != nil {
		return err
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("removing artifacts for machine %s: %w", machineID, err)
	}
	return nil
}
