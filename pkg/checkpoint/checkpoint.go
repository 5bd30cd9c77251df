package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/sanath1188/insta-collections-insights/pkg/logger"
)

// CurrentVersion is written into every new checkpoint
const CurrentVersion = 1

// Checkpoint is the progress of one collection run
type Checkpoint struct {
	CollectionID      string    `json:"collection_id"`
	CollectionName    string    `json:"collection_name"`
	TablePath         string    `json:"table_path"`
	LastProcessedPage int       `json:"last_processed_page"`
	NextCursor        string    `json:"next_cursor"`
	TotalWritten      int       `json:"total_written"`
	TotalSkipped      int       `json:"total_skipped"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Version           int       `json:"version"`
}

// Manager reads and writes the checkpoint file of one collection
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewManager creates a manager storing its file under the platform data
// directory
func NewManager(collectionID string, log logger.Logger) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewManagerAt(filepath.Join(dataDir, "checkpoints"), collectionID, log)
}

// NewManagerAt creates a manager storing its file in dir
func NewManagerAt(dir, collectionID string, log logger.Logger) (*Manager, error) {
	if collectionID == "" {
		return nil, fmt.Errorf("collection id is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	name := unsafeName.ReplaceAllString(collectionID, "_")
	return &Manager{
		checkpointPath: filepath.Join(dir, name+".checkpoint.json"),
		logger:         log.WithField("collection_id", collectionID),
	}, nil
}

// Path is the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create writes a fresh checkpoint
func (m *Manager) Create(collectionID, collectionName, tablePath string) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{
		CollectionID:   collectionID,
		CollectionName: collectionName,
		TablePath:      tablePath,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        CurrentVersion,
	}

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"path": m.checkpointPath,
	})
	return cp, nil
}

// Load returns the stored checkpoint, or nil when there is none
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version > CurrentVersion {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", cp.Version, CurrentVersion)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"page":          cp.LastProcessedPage,
		"next_cursor":   cp.NextCursor,
		"total_written": cp.TotalWritten,
		"updated_at":    cp.UpdatedAt,
	})
	return &cp, nil
}

// Save writes the checkpoint through a temporary file and rename
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"page":          cp.LastProcessedPage,
		"next_cursor":   cp.NextCursor,
		"total_written": cp.TotalWritten,
	})
	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// UpdateProgress records a finished page. written and skipped are added to
// the running totals.
func (m *Manager) UpdateProgress(cp *Checkpoint, nextCursor string, page, written, skipped int) error {
	cp.NextCursor = nextCursor
	cp.LastProcessedPage = page
	cp.TotalWritten += written
	cp.TotalSkipped += skipped
	return m.Save(cp)
}

// Matches reports whether cp was recorded for the same collection and table
func (cp *Checkpoint) Matches(collectionID, tablePath string) bool {
	return cp.CollectionID == collectionID && filepath.Clean(cp.TablePath) == filepath.Clean(tablePath)
}

// Info returns a summary of the stored checkpoint for display
func (m *Manager) Info() (map[string]interface{}, error) {
	cp, err := m.Load()
	if err != nil || cp == nil {
		return nil, err
	}
	return map[string]interface{}{
		"collection_id":   cp.CollectionID,
		"collection_name": cp.CollectionName,
		"table_path":      cp.TablePath,
		"page":            cp.LastProcessedPage,
		"next_cursor":     cp.NextCursor,
		"total_written":   cp.TotalWritten,
		"updated_at":      cp.UpdatedAt,
		"age":             time.Since(cp.UpdatedAt),
	}, nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "igcollect")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "igcollect")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "igcollect")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "igcollect")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
