// Package store persists deploy records and their log artifacts. The
// record collection is append-only: nothing here edits or removes an
// entry. Single-writer discipline is assumed; concurrent invocations
// against the same store directory are not a supported scenario.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Deploy statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusDryRun  = "dry-run"
)

// DeployRecord is the immutable, persisted outcome of one deploy
// invocation. URL is non-nil exactly when Status is success.
type DeployRecord struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ProjectPath  string    `json:"projectPath"`
	Provider     string    `json:"provider"`
	Method       string    `json:"method"`
	URL          *string   `json:"url"`
	Status       string    `json:"status"`
	DurationSec  float64   `json:"durationSec"`
	MetaHash     string    `json:"metaHash"`
	DecisionHash string    `json:"decisionHash"`
	LogsPath     *string   `json:"logsPath"`
	SessionID    string    `json:"sessionId,omitempty"`
}

type Store struct {
	dir string
}

// Open prepares the state directory (records file plus a logs/
// subdirectory for artifacts).
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) recordsPath() string {
	return filepath.Join(s.dir, "deployments.json")
}

// List returns all records in append order. A missing file is an empty
// history, not an error.
func (s *Store) List() ([]DeployRecord, error) {
	data, err := os.ReadFile(s.recordsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []DeployRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("state file is corrupt: %w", err)
	}
	return records, nil
}

// Get returns the record with the given id, newest match first.
func (s *Store) Get(id string) (*DeployRecord, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ID == id {
			rec := records[i]
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("no deploy record found for id %s", id)
}

// Append adds one record to the history. The write is atomic (tmp file
// plus rename) so a crash never leaves a half-written state file.
func (s *Store) Append(rec DeployRecord) error {
	records, err := s.List()
	if err != nil {
		return err
	}
	records = append(records, rec)

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.recordsPath() + ".tmp"
	if err := os.WriteFile(tmpPath, payload, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.recordsPath()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// WriteLog stores the full log artifact for a record and returns its
// path.
func (s *Store) WriteLog(id string, data []byte) (string, error) {
	path := filepath.Join(s.dir, "logs", id+".log")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// ReadLog returns the stored log artifact for a record.
func (s *Store) ReadLog(id string) (string, error) {
	rec, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if rec.LogsPath == nil {
		return "", fmt.Errorf("record %s has no log artifact", id)
	}
	data, err := os.ReadFile(*rec.LogsPath)
	if err != nil {
		return "", fmt.Errorf("failed to read log artifact: %w", err)
	}
	return string(data), nil
}
