package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"followgraph/pkg/logger"
	"followgraph/pkg/storage"
)

// Version is the current checkpoint format
const Version = 1

// ErrFingerprintMismatch is returned when a checkpoint belongs to a
// different account list
var ErrFingerprintMismatch = errors.New("checkpoint was created for a different account list")

// Status is the collection state of one account
type Status string

const (
	StatusPending   Status = "pending"
	StatusCollected Status = "collected"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Edge is a directed follower link: Source follows Target
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// AccountState is the progress of one account
type AccountState struct {
	Status Status `json:"status"`
	// Pages of follower IDs fetched
	Pages int `json:"pages"`
	// Followers is the number of follower IDs seen
	Followers int `json:"followers"`
	// InSet is the number of followers that are themselves collected accounts
	InSet int `json:"in_set"`
	// Truncated is set when the page cap stopped collection early
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
	Attempts  int    `json:"attempts"`
}

// Checkpoint represents the state of a link collection run
type Checkpoint struct {
	RunID       string                   `json:"run_id"`
	Fingerprint string                   `json:"fingerprint"`
	Current     string                   `json:"current,omitempty"`
	Cursor      string                   `json:"cursor,omitempty"`
	Accounts    map[string]*AccountState `json:"accounts"`
	Edges       []Edge                   `json:"edges"`
	External    []string                 `json:"external"`
	Requests    int                      `json:"requests"`
	Completed   bool                     `json:"completed"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	Version     int                      `json:"version"`
}

// New creates an empty checkpoint for the given account IDs
func New(ids []string) *Checkpoint {
	now := time.Now()
	cp := &Checkpoint{
		RunID:       uuid.NewString(),
		Fingerprint: Fingerprint(ids),
		Accounts:    make(map[string]*AccountState, len(ids)),
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     Version,
	}
	for _, id := range ids {
		cp.Accounts[id] = &AccountState{Status: StatusPending}
	}
	return cp
}

// Fingerprint identifies an ordered account list
func Fingerprint(ids []string) string {
	h := sha256.New()
	for _, id := range ids {
		io.WriteString(h, id)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// State returns the state of id, creating a pending one if absent
func (c *Checkpoint) State(id string) *AccountState {
	st, ok := c.Accounts[id]
	if !ok {
		st = &AccountState{Status: StatusPending}
		c.Accounts[id] = st
	}
	return st
}

// Counts returns the number of accounts per status
func (c *Checkpoint) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, st := range c.Accounts {
		counts[st.Status]++
	}
	return counts
}

// Done returns how many accounts are no longer pending
func (c *Checkpoint) Done() int {
	n := 0
	for _, st := range c.Accounts {
		if st.Status != StatusPending {
			n++
		}
	}
	return n
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManagerAt creates a manager for the checkpoint file at path
func NewManagerAt(path string, log logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Manager{
		checkpointPath: path,
		logger:         logger.OrDefault(log),
	}, nil
}

// NewManager creates a manager for a named checkpoint in the data directory
func NewManager(name string, log logger.Logger) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	return NewManagerAt(filepath.Join(dataDir, "checkpoints", fmt.Sprintf("%s.checkpoint.json", name)), log)
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Load loads an existing checkpoint. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Version > Version {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", checkpoint.Version, Version)
	}
	if checkpoint.Accounts == nil {
		checkpoint.Accounts = make(map[string]*AccountState)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"run_id":     checkpoint.RunID,
		"done":       checkpoint.Done(),
		"total":      len(checkpoint.Accounts),
		"edges":      len(checkpoint.Edges),
		"current":    checkpoint.Current,
		"updated_at": checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// LoadFor loads the checkpoint and verifies it belongs to ids
func (m *Manager) LoadFor(ids []string) (*Checkpoint, error) {
	cp, err := m.Load()
	if err != nil || cp == nil {
		return cp, err
	}
	if cp.Fingerprint != Fingerprint(ids) {
		return nil, fmt.Errorf("%w (%s)", ErrFingerprintMismatch, m.checkpointPath)
	}
	return cp, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	err := storage.WriteFileAtomic(m.checkpointPath, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(checkpoint)
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"run_id":  checkpoint.RunID,
		"current": checkpoint.Current,
		"cursor":  checkpoint.Cursor,
		"edges":   len(checkpoint.Edges),
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// GetCheckpointInfo returns a summary of the checkpoint
func (m *Manager) GetCheckpointInfo() (map[string]interface{}, error) {
	checkpoint, err := m.Load()
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		return nil, nil
	}

	counts := checkpoint.Counts()
	return map[string]interface{}{
		"run_id":     checkpoint.RunID,
		"total":      len(checkpoint.Accounts),
		"collected":  counts[StatusCollected],
		"skipped":    counts[StatusSkipped],
		"failed":     counts[StatusFailed],
		"pending":    counts[StatusPending],
		"edges":      len(checkpoint.Edges),
		"requests":   checkpoint.Requests,
		"completed":  checkpoint.Completed,
		"created_at": checkpoint.CreatedAt,
		"updated_at": checkpoint.UpdatedAt,
		"age":        time.Since(checkpoint.UpdatedAt),
	}, nil
}

// BackupCheckpoint copies the current checkpoint next to itself
func (m *Manager) BackupCheckpoint() error {
	if !m.Exists() {
		return nil
	}

	src, err := os.Open(m.checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	err = storage.WriteFileAtomic(m.checkpointPath+".backup", func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to back up checkpoint: %w", err)
	}

	m.logger.Debug("Checkpoint backed up")
	return nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		// Use XDG_DATA_HOME if set, otherwise ~/.local/share
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "followgraph")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "followgraph")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "followgraph")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "followgraph")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
