package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Artifact file names inside the output directory
const (
	AccountsFile   = "accounts.json"
	SheetFile      = "coding_sheet.csv"
	AnnotatedFile  = "annotated.json"
	StatsFile      = "stats.json"
	LinksFile      = "links.json"
	CheckpointFile = "links.checkpoint.json"
)

// ErrMissingArtifact is returned when a stage's input has not been produced yet
var ErrMissingArtifact = errors.New("artifact not found")

// Manager handles file storage inside one output directory
type Manager struct {
	outputDir string
}

// NewManager creates a new storage manager, creating outputDir if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir}, nil
}

// Path returns the path of name inside the output directory. Absolute paths
// are returned unchanged.
func (m *Manager) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.outputDir, name)
}

// Exists reports whether the artifact exists
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// Artifacts lists the files present in the output directory, sorted
func (m *Manager) Artifacts() ([]string, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) != ".tmp" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Write writes an artifact atomically using fn to produce its content
func (m *Manager) Write(name string, fn func(w io.Writer) error) error {
	return WriteFileAtomic(m.Path(name), fn)
}

// SaveJSON writes v as indented JSON
func (m *Manager) SaveJSON(name string, v interface{}) error {
	return m.Write(name, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// LoadJSON decodes the artifact into v
func (m *Manager) LoadJSON(name string, v interface{}) error {
	f, err := m.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// Open opens an artifact for reading
func (m *Manager) Open(name string) (*os.File, error) {
	f, err := os.Open(m.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, m.Path(name))
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}

// Remove deletes an artifact; a missing file is not an error
func (m *Manager) Remove(name string) error {
	if err := os.Remove(m.Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// WriteFileAtomic writes path through a temporary file in the same
// directory and renames it into place once fn succeeds.
func WriteFileAtomic(path string, fn func(w io.Writer) error) error {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	err = fn(out)
	if err == nil {
		err = out.Sync()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
